package plugin

import "testing"

func newTestRegistry() *Registry {
	return &Registry{providers: make(map[string]map[string]*Provider)}
}

func noopFactory(cfg map[string]any) (any, error) { return nil, nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := newTestRegistry()
	r.Register(&Provider{Kind: "stt", Name: "test", Factory: noopFactory})

	if _, ok := r.Get("stt", "test"); !ok {
		t.Error("registered provider not found")
	}
	if _, ok := r.Get("stt", "missing"); ok {
		t.Error("unregistered provider found")
	}
	if _, ok := r.Get("llm", "test"); ok {
		t.Error("provider found under wrong kind")
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := newTestRegistry()
	r.Register(&Provider{Kind: "tts", Name: "dupe", Factory: noopFactory})

	defer func() {
		if recover() == nil {
			t.Error("duplicate registration should panic")
		}
	}()
	r.Register(&Provider{Kind: "tts", Name: "dupe", Factory: noopFactory})
}

func TestRegistry_ListSorted(t *testing.T) {
	r := newTestRegistry()
	r.Register(&Provider{Kind: "tts", Name: "cartesia", Factory: noopFactory})
	r.Register(&Provider{Kind: "stt", Name: "deepgram", Factory: noopFactory})
	r.Register(&Provider{Kind: "llm", Name: "groq", Factory: noopFactory})

	all := r.List("")
	if len(all) != 3 {
		t.Fatalf("List(\"\") returned %d providers, want 3", len(all))
	}
	wantOrder := []string{"llm", "stt", "tts"}
	for i, p := range all {
		if p.Kind != wantOrder[i] {
			t.Errorf("position %d: got kind %s, want %s", i, p.Kind, wantOrder[i])
		}
	}

	stt := r.List("stt")
	if len(stt) != 1 || stt[0].Name != "deepgram" {
		t.Errorf("List(stt) = %+v", stt)
	}
}
