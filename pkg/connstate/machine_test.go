package connstate

import (
	"testing"
	"time"
)

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{Initializing, "INITIALIZING"},
		{HandshakePending, "HANDSHAKE_PENDING"},
		{Connected, "CONNECTED"},
		{ReadyForMessages, "READY_FOR_MESSAGES"},
		{StateError, "ERROR"},
		{Closed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}

	for _, c := range cases {
		if got := c.state.String(); got != c.want {
			t.Errorf("State(%d).String() = %q, want %q", c.state, got, c.want)
		}
	}
}

func TestMachine(t *testing.T) {
	t.Run("InitialState", func(t *testing.T) {
		m := NewMachine()
		if m.Current() != Initializing {
			t.Errorf("Current() = %s, want INITIALIZING", m.Current())
		}
		if m.IsReadyForMessages() {
			t.Error("fresh machine should not be ready")
		}
		if len(m.History()) != 0 {
			t.Errorf("fresh machine history length = %d, want 0", len(m.History()))
		}
	})

	t.Run("HappyPath", func(t *testing.T) {
		m := NewMachine()
		m.Transition(HandshakePending)
		m.Transition(Connected)
		m.Transition(ReadyForMessages)

		if m.Current() != ReadyForMessages {
			t.Errorf("Current() = %s, want READY_FOR_MESSAGES", m.Current())
		}
		if !m.IsReadyForMessages() {
			t.Error("IsReadyForMessages() = false after full sequence")
		}

		hist := m.History()
		if len(hist) != 3 {
			t.Fatalf("history length = %d, want 3", len(hist))
		}

		wantSeq := []State{HandshakePending, Connected, ReadyForMessages}
		from := Initializing
		for i, tr := range hist {
			if tr.From != from {
				t.Errorf("transition %d: From = %s, want %s", i, tr.From, from)
			}
			if tr.To != wantSeq[i] {
				t.Errorf("transition %d: To = %s, want %s", i, tr.To, wantSeq[i])
			}
			from = tr.To
		}
	})

	t.Run("TimestampsNonDecreasing", func(t *testing.T) {
		m := NewMachine()
		m.Transition(HandshakePending)
		time.Sleep(time.Millisecond)
		m.Transition(Connected)
		m.Transition(ReadyForMessages)

		hist := m.History()
		for i := 1; i < len(hist); i++ {
			if hist[i].At.Before(hist[i-1].At) {
				t.Errorf("transition %d timestamp precedes transition %d", i, i-1)
			}
		}
	})

	t.Run("ReadinessGate", func(t *testing.T) {
		// Only READY_FOR_MESSAGES opens the gate.
		for _, s := range []State{Initializing, HandshakePending, Connected, StateError, Closed} {
			m := NewMachine()
			if s != Initializing {
				m.Transition(s)
			}
			if m.IsReadyForMessages() {
				t.Errorf("IsReadyForMessages() = true in %s", s)
			}
		}
	})

	t.Run("HistoryIsCopy", func(t *testing.T) {
		m := NewMachine()
		m.Transition(HandshakePending)

		hist := m.History()
		hist[0].To = Closed

		if m.History()[0].To != HandshakePending {
			t.Error("mutating the returned history leaked into the machine")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		m := NewMachine()
		m.Transition(HandshakePending)
		m.Transition(StateError)

		m.Reset()

		if m.Current() != Initializing {
			t.Errorf("Current() = %s after reset, want INITIALIZING", m.Current())
		}
		if len(m.History()) != 0 {
			t.Errorf("history length = %d after reset, want 0", len(m.History()))
		}
	})
}

func TestValidateSequence(t *testing.T) {
	t.Run("EmptyLogValid", func(t *testing.T) {
		if !NewMachine().ValidateSequence() {
			t.Error("empty log should validate")
		}
	})

	t.Run("HappyPathValid", func(t *testing.T) {
		m := NewMachine()
		m.Transition(HandshakePending)
		m.Transition(Connected)
		m.Transition(ReadyForMessages)
		if !m.ValidateSequence() {
			t.Error("full happy path should validate")
		}
	})

	t.Run("ErrorFromAnyNonTerminalValid", func(t *testing.T) {
		for _, s := range []State{HandshakePending, Connected, ReadyForMessages} {
			m := NewMachine()
			m.Transition(HandshakePending)
			if s != HandshakePending {
				m.Transition(Connected)
			}
			if s == ReadyForMessages {
				m.Transition(ReadyForMessages)
			}
			m.Transition(StateError)
			if !m.ValidateSequence() {
				t.Errorf("ERROR after %s should validate", s)
			}
		}
	})

	t.Run("SkippedPhaseInvalid", func(t *testing.T) {
		m := NewMachine()
		m.Transition(Connected) // skips HANDSHAKE_PENDING
		if m.ValidateSequence() {
			t.Error("skipping HANDSHAKE_PENDING should not validate")
		}
	})

	t.Run("TransitionOutOfClosedInvalid", func(t *testing.T) {
		m := NewMachine()
		m.Transition(Closed)
		m.Transition(HandshakePending)
		if m.ValidateSequence() {
			t.Error("transition out of CLOSED should not validate")
		}
	})

	t.Run("ErrorToClosedValid", func(t *testing.T) {
		m := NewMachine()
		m.Transition(StateError)
		m.Transition(Closed)
		if !m.ValidateSequence() {
			t.Error("ERROR -> CLOSED should validate")
		}
	})
}
