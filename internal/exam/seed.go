package exam

import "context"

const stage1DurationSec = 1800

type seedSubject struct {
	subject   string
	questions []Question
}

var stage1Subjects = []seedSubject{
	{
		subject: "Mathematics",
		questions: []Question{
			{Text: "What is 12 ÷ 3?", Options: []string{"2", "3", "4", "6"}, CorrectOption: 2},
			{Text: "What is 15% of 200?", Options: []string{"15", "20", "25", "30"}, CorrectOption: 3},
			{Text: "Solve: 7 × 8", Options: []string{"54", "56", "58", "64"}, CorrectOption: 1},
			{Text: "Simplify: 3/9", Options: []string{"1/2", "1/3", "2/3", "3/9"}, CorrectOption: 1},
			{Text: "What is the next number in the sequence: 2, 4, 8, 16, ?", Options: []string{"18", "24", "30", "32"}, CorrectOption: 3},
		},
	},
	{
		subject: "English",
		questions: []Question{
			{Text: "Choose the correct spelling:", Options: []string{"Recieve", "Receive", "Receeve", "Receve"}, CorrectOption: 1},
			{Text: "Which word is a synonym of “quick”?", Options: []string{"Slow", "Rapid", "Lazy", "Weak"}, CorrectOption: 1},
			{Text: "Choose the correct sentence:", Options: []string{"She don't like rice.", "She doesn't like rice.", "She not like rice.", "She didn't likes rice."}, CorrectOption: 1},
			{Text: "Which is a noun?", Options: []string{"Run", "Beautiful", "Happiness", "Quickly"}, CorrectOption: 2},
			{Text: "Pick the correct punctuation:", Options: []string{"Let's eat grandma.", "Let's eat, grandma.", "Lets eat grandma.", "Lets eat, grandma."}, CorrectOption: 1},
		},
	},
	{
		subject: "Physics",
		questions: []Question{
			{Text: "What is the SI unit of force?", Options: []string{"Joule", "Newton", "Watt", "Pascal"}, CorrectOption: 1},
			{Text: "Speed is defined as:", Options: []string{"Distance ÷ time", "Time ÷ distance", "Mass × acceleration", "Force ÷ area"}, CorrectOption: 0},
			{Text: "Which of these is a form of energy?", Options: []string{"Velocity", "Temperature", "Kinetic energy", "Pressure"}, CorrectOption: 2},
			{Text: "If voltage increases while resistance stays constant, current:", Options: []string{"Decreases", "Increases", "Stays the same", "Becomes zero"}, CorrectOption: 1},
			{Text: "A device that measures electric current is called:", Options: []string{"Voltmeter", "Ammeter", "Thermometer", "Barometer"}, CorrectOption: 1},
		},
	},
	{
		subject: "Chemistry",
		questions: []Question{
			{Text: "Water is a compound made of:", Options: []string{"Hydrogen and Oxygen", "Carbon and Oxygen", "Sodium and Chlorine", "Nitrogen and Hydrogen"}, CorrectOption: 0},
			{Text: "The pH of a neutral solution is:", Options: []string{"0", "7", "10", "14"}, CorrectOption: 1},
			{Text: "Which is a noble gas?", Options: []string{"Oxygen", "Nitrogen", "Helium", "Hydrogen"}, CorrectOption: 2},
			{Text: "Rusting is an example of:", Options: []string{"Neutralization", "Oxidation", "Distillation", "Evaporation"}, CorrectOption: 1},
			{Text: "The chemical symbol for Sodium is:", Options: []string{"So", "Sd", "Na", "N"}, CorrectOption: 2},
		},
	},
	{
		subject: "Biology",
		questions: []Question{
			{Text: "The basic unit of life is the:", Options: []string{"Atom", "Cell", "Tissue", "Organ"}, CorrectOption: 1},
			{Text: "Photosynthesis occurs in the:", Options: []string{"Mitochondria", "Nucleus", "Chloroplast", "Ribosome"}, CorrectOption: 2},
			{Text: "Humans have how many chambers in the heart?", Options: []string{"2", "3", "4", "5"}, CorrectOption: 2},
			{Text: "Which blood cells help to fight infection?", Options: []string{"Red blood cells", "White blood cells", "Platelets", "Plasma"}, CorrectOption: 1},
			{Text: "The process by which plants lose water vapor is called:", Options: []string{"Transpiration", "Respiration", "Germination", "Excretion"}, CorrectOption: 0},
		},
	},
}

// EnsureDefaultStage1Exams creates any missing stage-1 subject exams.
// Existing subjects are left untouched, so rerunning is safe.
func EnsureDefaultStage1Exams(ctx context.Context, store Store) error {
	existing, err := store.ListExamsByStage(ctx, 1)
	if err != nil {
		return err
	}
	have := map[string]bool{}
	for _, e := range existing {
		have[e.Subject] = true
	}
	for _, s := range stage1Subjects {
		if have[s.subject] {
			continue
		}
		e := Exam{
			Stage:       1,
			Subject:     s.subject,
			DurationSec: stage1DurationSec,
			Questions:   s.questions,
		}
		if err := store.PutExam(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
