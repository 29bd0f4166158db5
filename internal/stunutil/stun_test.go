package stunutil

import (
	"context"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	if got := Classify([]string{"1.2.3.4:1"}); got != NATTypeUnknown {
		t.Fatalf("got=%q", got)
	}
	if got := Classify([]string{"1.2.3.4:1", "1.2.3.4:1"}); got != NATTypeConeOrRestricted {
		t.Fatalf("got=%q", got)
	}
	if got := Classify([]string{"1.2.3.4:1", "1.2.3.4:2"}); got != NATTypeSymmetric {
		t.Fatalf("got=%q", got)
	}
}

func TestProbe_NoServers(t *testing.T) {
	t.Parallel()

	e, err := Probe(context.Background(), nil, time.Second)
	if err == nil {
		t.Fatal("expected error")
	}
	if e.NATType != NATTypeUnknown {
		t.Fatalf("nat=%q", e.NATType)
	}
}

func TestProbe_InvalidServer(t *testing.T) {
	t.Parallel()

	if _, err := Probe(context.Background(), []string{" "}, time.Second); err == nil {
		t.Fatal("expected error")
	}
}
