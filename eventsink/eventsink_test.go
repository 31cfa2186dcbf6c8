package eventsink

import "testing"

func TestBus_PushDeliversToSubscriber(t *testing.T) {
	b := NewBus(4, nil)
	sub, unsub := b.Subscribe()
	defer unsub()

	b.Push("wf1", ToolParsed("create_instance"))

	select {
	case ev := <-sub.Events():
		if ev.StreamKey != "wf1" || ev.Line != "tool.parsed create_instance" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected an event to be delivered")
	}
}

func TestBus_PushAssistantTextDeliversToSubscriber(t *testing.T) {
	b := NewBus(4, nil)
	sub, unsub := b.Subscribe()
	defer unsub()

	b.PushAssistantText("wf1", AssistantText{Phase: PhaseFinal, Text: "done"})

	select {
	case st := <-sub.AssistantText():
		if st.StreamKey != "wf1" || st.Chunk.Text != "done" || st.Chunk.Phase != PhaseFinal {
			t.Fatalf("unexpected assistant text: %+v", st)
		}
	default:
		t.Fatal("expected an assistant-text chunk to be delivered")
	}
}

func TestBus_UnsubscribedListenerReceivesNothing(t *testing.T) {
	b := NewBus(4, nil)
	sub, unsub := b.Subscribe()
	unsub()

	b.Push("wf1", "tool.parsed create_instance")

	select {
	case ev := <-sub.Events():
		t.Fatalf("did not expect delivery after unsubscribe, got %+v", ev)
	default:
	}
}

func TestBus_FullBufferDropsOldestAndReportsDrop(t *testing.T) {
	var dropped []string
	b := NewBus(2, func(streamKey string) { dropped = append(dropped, streamKey) })
	sub, unsub := b.Subscribe()
	defer unsub()

	b.Push("wf1", "a")
	b.Push("wf1", "b")
	b.Push("wf1", "c") // buffer full at 2, "a" should be dropped

	if len(dropped) != 1 || dropped[0] != "wf1" {
		t.Fatalf("expected one drop reported for wf1, got %v", dropped)
	}

	first := <-sub.Events()
	second := <-sub.Events()
	if first.Line != "b" || second.Line != "c" {
		t.Fatalf("expected [b c] to survive, got [%s %s]", first.Line, second.Line)
	}
}

func TestBus_IndependentStreamsDoNotInterfere(t *testing.T) {
	b := NewBus(4, nil)
	sub, unsub := b.Subscribe()
	defer unsub()

	b.Push("wf1", "one")
	b.Push("wf2", "two")

	first := <-sub.Events()
	second := <-sub.Events()
	if first.StreamKey != "wf1" || second.StreamKey != "wf2" {
		t.Fatalf("expected FIFO delivery across streams, got %+v then %+v", first, second)
	}
}

func TestEventVocabulary_FormatsAsSpecified(t *testing.T) {
	cases := map[string]string{
		OrchestratorStart():                "orchestrator.start",
		ContextRequest("stale_cache"):       "context.request stale_cache",
		ToolParsed("create_instance"):       "tool.parsed create_instance",
		ProposalsMapped("create_instance", 3): "proposals.mapped create_instance count=3",
		ProviderResponse(2, 512):             "provider.response turn=2 chars=512",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}
