package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

func TestURLSet_AddIfAbsent(t *testing.T) {
	s := NewURLSet()

	if !s.Add("https://a.com") {
		t.Error("First Add should report insertion")
	}
	if s.Add("https://a.com") {
		t.Error("Second Add of the same URL should report false")
	}
	if !s.Contains("https://a.com") {
		t.Error("Contains should be true after Add")
	}
	if s.Contains("https://b.com") {
		t.Error("Contains should be false for unknown URL")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestURLSet_ConcurrentAddSingleWinner(t *testing.T) {
	s := NewURLSet()
	var winners atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add("https://same.example/page") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("winners = %d, want exactly 1", winners.Load())
	}
}

func TestURLSet_ConcurrentDistinct(t *testing.T) {
	s := NewURLSet()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add(fmt.Sprintf("https://example.com/%d", i))
			_ = s.Contains("https://example.com/0")
		}(i)
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("Len = %d, want 100", s.Len())
	}
}
