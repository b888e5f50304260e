package scene

import (
	"fmt"
	"testing"
)

func TestLedgerGraduateReportsNewlyOnce(t *testing.T) {
	l := NewLedger()
	if !l.Graduate("msg-1") {
		t.Fatalf("first graduation should report newly graduated")
	}
	if l.Graduate("msg-1") {
		t.Fatalf("second graduation of the same key should report false")
	}
	if !l.Graduate("msg-2") {
		t.Fatalf("a distinct key graduates independently")
	}
}

func TestLedgerContains(t *testing.T) {
	l := NewLedger()
	if l.Contains("missing") {
		t.Fatalf("fresh ledger should contain nothing")
	}
	l.Graduate("k")
	if !l.Contains("k") {
		t.Fatalf("graduated key should be contained")
	}
}

func TestLedgerLenTracksDistinctKeys(t *testing.T) {
	l := NewLedger()
	for i := 0; i < 10; i++ {
		l.Graduate(fmt.Sprintf("key-%d", i%3))
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("want 3 distinct keys, got %d", got)
	}
}
