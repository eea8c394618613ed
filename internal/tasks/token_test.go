// Copyright (c) 2025 The privchat authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"sync"
	"testing"
)

func TestTokenStartsActive(t *testing.T) {
	tok := NewToken()
	if tok.State() != TokenActive {
		t.Fatalf("new token state = %v, want Active", tok.State())
	}
	select {
	case <-tok.Done():
		t.Fatal("Done closed on an active token")
	default:
	}
}

func TestTokenCancelIsOneWay(t *testing.T) {
	tok := NewToken()
	if !tok.Cancel() {
		t.Fatal("first Cancel returned false")
	}
	if tok.State() != TokenCancelled {
		t.Fatalf("state = %v, want Cancelled", tok.State())
	}
	if tok.Cancel() {
		t.Fatal("second Cancel returned true")
	}
	if tok.Finish() {
		t.Fatal("Finish after Cancel returned true")
	}
	if tok.State() != TokenCancelled {
		t.Fatalf("state changed after late Finish: %v", tok.State())
	}
	select {
	case <-tok.Done():
	default:
		t.Fatal("Done not closed after Cancel")
	}
}

func TestTokenFinishIsOneWay(t *testing.T) {
	tok := NewToken()
	if !tok.Finish() {
		t.Fatal("first Finish returned false")
	}
	if tok.Cancel() {
		t.Fatal("Cancel after Finish returned true")
	}
	if tok.State() != TokenFinished {
		t.Fatalf("state = %v, want Finished", tok.State())
	}
	if tok.Cancelled() {
		t.Fatal("Cancelled true on a finished token")
	}
	select {
	case <-tok.Done():
	default:
		t.Fatal("Done not closed after Finish")
	}
}

func TestTokenConcurrentTransitions(t *testing.T) {
	tok := NewToken()

	var wg sync.WaitGroup
	wins := make(chan TokenState, 64)
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if tok.Cancel() {
				wins <- TokenCancelled
			}
		}()
		go func() {
			defer wg.Done()
			if tok.Finish() {
				wins <- TokenFinished
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []TokenState
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("%d transitions won, want exactly 1", len(winners))
	}
	if tok.State() != winners[0] {
		t.Fatalf("state %v does not match winning transition %v", tok.State(), winners[0])
	}
}
