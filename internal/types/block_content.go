package types

// JSON contracts for type-specific block content. The authoring side stores
// the full shape; disclosure strips the secret fields before a student sees
// the block.

type CodeBlockContent struct {
	TaskMD         string `json:"taskMd"`
	Language       string `json:"language"`
	StarterCode    string `json:"starterCode,omitempty"`
	HiddenTests    string `json:"hiddenTests,omitempty"`
	ExpectedOutput string `json:"expectedOutput,omitempty"`
}

type QuizOption struct {
	Text        string `json:"text"`
	IsCorrect   bool   `json:"isCorrect,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

type QuizQuestion struct {
	PromptMD string       `json:"promptMd"`
	Options  []QuizOption `json:"options"`
}

type QuizBlockContent struct {
	Questions []QuizQuestion `json:"questions"`
}

type TextBlockContent struct {
	BodyMD string `json:"bodyMd"`
}
