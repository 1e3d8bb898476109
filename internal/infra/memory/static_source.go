package memory

import (
	"context"

	"staar-quiz-service/internal/domain"
)

// StaticSource is a question source backed by an in-memory list (built-in set, tests, demos).
type StaticSource struct {
	questions []domain.Question
}

func NewStaticSource(questions []domain.Question) *StaticSource {
	return &StaticSource{questions: questions}
}

func (s *StaticSource) Load(_ context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out, nil
}

// DefaultQuestions returns the built-in STAAR math question set.
func DefaultQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Text: "Rebecca bought 8 air filters at $16.95 each and used a $7.50 coupon. How much did she pay?", Options: []string{"$128.10", "$135.60", "$143.10", "$120.60"}, CorrectAnswer: 0},
		{ID: 2, Text: "What is 0.64 rounded to the tenths place?", Options: []string{"0.6", "0.7", "0.64", "1.0"}, CorrectAnswer: 0},
		{ID: 3, Text: "Ms. Jaffey put 428.5 ounces of pretzels into 5 bowls equally. How many ounces per bowl?", Options: []string{"80.0 oz", "85.3 oz", "85.7 oz", "97.7 oz"}, CorrectAnswer: 2},
		{ID: 4, Text: "Dion ran 3.75 kilometers each day for 28 days. What was the total distance?", Options: []string{"10.5 km", "105 km", "18.75 km", "1,050 km"}, CorrectAnswer: 1},
		{ID: 5, Text: "The edge of a cube is 3 units. What is the volume of the cube?", Options: []string{"9 cubic units", "12 cubic units", "27 cubic units", "81 cubic units"}, CorrectAnswer: 2},
		{ID: 6, Text: "4 friends paid $50.24 total for museum tickets. How much did each friend pay?", Options: []string{"$12.01", "$12.56", "$10.01", "$200.96"}, CorrectAnswer: 1},
		{ID: 7, Text: "What is the value of 4(-2) + (-10) + 3(-8)?", Options: []string{"-22", "-13", "-42", "7"}, CorrectAnswer: 2},
		{ID: 8, Text: "Dennis made $245, which was 7% of the total value of furniture sold. Total value?", Options: []string{"$350", "$1,715", "$3,500", "$171.50"}, CorrectAnswer: 2},
		{ID: 9, Text: "What is the value of 6 + (-4)³?", Options: []string{"-58", "-70", "8", "-10"}, CorrectAnswer: 0},
		{ID: 10, Text: "Which point follows the rule y = x + 3?", Options: []string{"(3, 1)", "(1, 4)", "(5, 2)", "(0, 0)"}, CorrectAnswer: 1},
		{ID: 11, Text: "Mr. Maclane drove 577.2 miles. Ms. Lopez drove 165.4 miles. How many more miles?", Options: []string{"311.8", "411.8", "742.6", "400.0"}, CorrectAnswer: 1},
		{ID: 12, Text: "A man bought 6 cans of tuna at $0.93 each. What was the total cost?", Options: []string{"$5.48", "$5.58", "$4.98", "$6.93"}, CorrectAnswer: 1},
		{ID: 13, Text: "What is the value of (1/5) ÷ 30?", Options: []string{"1/150", "1/6", "6", "150"}, CorrectAnswer: 0},
		{ID: 14, Text: "What is the value of 3(25 + 19) + 4(3)?", Options: []string{"144", "168", "294", "408"}, CorrectAnswer: 0},
		{ID: 15, Text: "A family used 2.24 lbs of beef for 8 equal burgers. How much beef per burger?", Options: []string{"0.33 lb", "0.28 lb", "0.3 lb", "2.8 lb"}, CorrectAnswer: 1},
		{ID: 16, Text: "Kelsi spends $6.75 for breakfast for 14 Saturdays. What is the total spent?", Options: []string{"$94.50", "$20.75", "$92.30", "$33.75"}, CorrectAnswer: 0},
		{ID: 17, Text: "Nicholas put 1,012 cards into 22 boxes equally. How many cards per box?", Options: []string{"55", "50", "46", "47"}, CorrectAnswer: 2},
		{ID: 18, Text: "Fabio drinks 2 quarts of water. How many cups is this? (1 quart = 4 cups)", Options: []string{"4 cups", "16 cups", "64 cups", "8 cups"}, CorrectAnswer: 3},
		{ID: 19, Text: "A worker used 8.05 kg of meat for 35 lunches. How much meat per lunch?", Options: []string{"2.03 kg", "0.23 kg", "0.023 kg", "2.3 kg"}, CorrectAnswer: 1},
		{ID: 20, Text: "What is the value of 2(32 + 18) ÷ 4?", Options: []string{"25", "100", "50", "12.5"}, CorrectAnswer: 0},
	}
}
