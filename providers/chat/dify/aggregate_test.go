package dify

import "testing"

func TestAggregatorOrderAndCompletion(t *testing.T) {
	t.Parallel()

	agg := &Aggregator{}
	agg.Apply(`{"event":"message","answer":"Hel","conversation_id":"c-1"}`)
	agg.Apply(`{"event":"message","answer":"lo, "}`)
	agg.Apply(`{"event":"message","answer":"world"}`)
	agg.Apply(`{"event":"message_end"}`)

	if !agg.Done() {
		t.Fatalf("expected aggregation to be complete")
	}
	answer := agg.Answer()
	if answer.Text != "Hello, world" {
		t.Fatalf("unexpected aggregated text %q", answer.Text)
	}
	if answer.ConversationID != "c-1" {
		t.Fatalf("unexpected conversation id %q", answer.ConversationID)
	}
}

func TestAggregatorToleratesMalformedLines(t *testing.T) {
	t.Parallel()

	agg := &Aggregator{}
	agg.Apply(`{"event":"message","answer":"Hola"}`)
	agg.Apply(`{not json`)
	agg.Apply(``)
	agg.Apply(`{"event":"message","answer":", mundo"}`)

	if agg.Done() {
		t.Fatalf("noise must not terminate aggregation")
	}
	if got := agg.Answer().Text; got != "Hola, mundo" {
		t.Fatalf("noise corrupted accumulated text: %q", got)
	}
}

func TestAggregatorConversationIDLastNonEmptyWins(t *testing.T) {
	t.Parallel()

	agg := &Aggregator{}
	agg.Apply(`{"event":"message","answer":"a","conversation_id":"c-1"}`)
	agg.Apply(`{"event":"message","answer":"b","conversation_id":""}`)
	agg.Apply(`{"event":"message","answer":"c","conversation_id":"c-2"}`)

	if got := agg.Answer().ConversationID; got != "c-2" {
		t.Fatalf("expected last non-empty conversation id, got %q", got)
	}
}

func TestAggregatorConversationIDRequiresAnswer(t *testing.T) {
	t.Parallel()

	agg := &Aggregator{}
	agg.Apply(`{"event":"message","answer":"","conversation_id":"c-ignored"}`)
	agg.Apply(`{"event":"message","answer":"texto","conversation_id":"c-1"}`)
	agg.Apply(`{"event":"message","answer":"","conversation_id":"c-also-ignored"}`)

	if got := agg.Answer().ConversationID; got != "c-1" {
		t.Fatalf("conversation id must only update alongside answer text, got %q", got)
	}
}

func TestAggregatorIgnoresEventsAfterTerminal(t *testing.T) {
	t.Parallel()

	agg := &Aggregator{}
	agg.Apply(`{"event":"message","answer":"first"}`)
	agg.Apply(`{"event":"message_end"}`)
	agg.Apply(`{"event":"message","answer":" late"}`)

	if got := agg.Answer().Text; got != "first" {
		t.Fatalf("terminal event must freeze the answer, got %q", got)
	}
}

func TestAggregatorIgnoresUnknownEvents(t *testing.T) {
	t.Parallel()

	agg := &Aggregator{}
	agg.Apply(`{"event":"workflow_started","answer":"should-not-apply"}`)
	agg.Apply(`{"event":"ping"}`)

	if got := agg.Answer().Text; got != "" {
		t.Fatalf("unknown events must not contribute text, got %q", got)
	}
	if agg.Done() {
		t.Fatalf("unknown events must not terminate aggregation")
	}
}

func TestAggregatorEmptyStreamYieldsEmptyAnswer(t *testing.T) {
	t.Parallel()

	agg := &Aggregator{}
	answer := agg.Answer()
	if !answer.Empty() {
		t.Fatalf("expected empty answer, got %+v", answer)
	}
}
