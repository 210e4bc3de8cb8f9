package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

func TestFirstQuestion(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"single question", "How long have you had the headache?", "How long have you had the headache?"},
		{"two questions", "How long has it hurt? Does it get worse at night?", "How long has it hurt?"},
		{"leading whitespace", "  \n Does resting help? ", "Does resting help?"},
		{"no question mark", "You should rest more.", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstQuestion(tt.text); got != tt.want {
				t.Fatalf("FirstQuestion(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestFollowupGenerator_ReturnsFirstQuestion(t *testing.T) {
	llm := &scriptedLLMClient{responses: []LLMResponse{{
		Text: "How long have you felt this way? Also, any fever?",
	}}}
	g := NewFollowupGenerator(llm, "gpt-4o", logging.Default())

	question, err := g.Generate(context.Background(), "I feel dizzy", "I'm sorry to hear that...", nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if question != "How long have you felt this way?" {
		t.Fatalf("unexpected question: %q", question)
	}
}

func TestFollowupGenerator_DropsRepeatedQuestion(t *testing.T) {
	llm := &scriptedLLMClient{responses: []LLMResponse{{Text: "How long have you felt this way?"}}}
	g := NewFollowupGenerator(llm, "gpt-4o", logging.Default())

	asked := []string{"how long have you   felt this way"}
	question, err := g.Generate(context.Background(), "still dizzy", "reply", asked)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if question != "" {
		t.Fatalf("expected repeated question dropped, got %q", question)
	}
}

func TestFollowupGenerator_RepeatCheckIgnoresPunctuationAndCase(t *testing.T) {
	llm := &scriptedLLMClient{responses: []LLMResponse{{Text: "DOES RESTING HELP?!"}}}
	g := NewFollowupGenerator(llm, "gpt-4o", logging.Default())

	question, err := g.Generate(context.Background(), "m", "r", []string{"Does resting help?"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if question != "" {
		t.Fatalf("expected normalized repeat dropped, got %q", question)
	}
}

func TestFollowupGenerator_NoQuestionInOutput(t *testing.T) {
	llm := &scriptedLLMClient{responses: []LLMResponse{{Text: "You should see a doctor."}}}
	g := NewFollowupGenerator(llm, "gpt-4o", logging.Default())

	question, err := g.Generate(context.Background(), "m", "r", nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if question != "" {
		t.Fatalf("expected empty question when model emits none, got %q", question)
	}
}

func TestFollowupGenerator_ErrorPropagates(t *testing.T) {
	llm := &scriptedLLMClient{err: errors.New("provider down")}
	g := NewFollowupGenerator(llm, "gpt-4o", logging.Default())

	if _, err := g.Generate(context.Background(), "m", "r", nil); err == nil {
		t.Fatal("expected error from failed completion")
	}
}
