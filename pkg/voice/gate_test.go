package voice

import (
	"sync"
	"testing"
)

func TestAudioGate(t *testing.T) {
	gate := NewAudioGate()

	if gate.ShouldDiscardAudio() {
		t.Error("gate should start open")
	}

	gate.SetSpeaking(true)
	if !gate.ShouldDiscardAudio() {
		t.Error("gate should discard audio while speaking")
	}

	gate.SetSpeaking(false)
	if gate.ShouldDiscardAudio() {
		t.Error("gate should reopen when speaking ends")
	}
}

func TestAudioGateConcurrency(t *testing.T) {
	gate := NewAudioGate()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(speaking bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				gate.SetSpeaking(speaking)
			}
		}(i%2 == 0)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = gate.ShouldDiscardAudio()
			}
		}()
	}
	wg.Wait()
}
