package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"candidate": {
		"exam:list",
		"exam:view",
		"attempt:start",
		"attempt:submit",
		"attempt:view-own",
		"attempt:event",
	},
	"admin": {
		"*", // everything
	},
}
