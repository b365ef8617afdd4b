package walleterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := New(NotEnoughCoinsException, "insufficient funds")
	if !errors.Is(err, New(NotEnoughCoinsException, "")) {
		t.Fatal("expected Is match on kind")
	}
	if errors.Is(err, New(FeeCalculationError, "")) {
		t.Fatal("did not expect Is match on different kind")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("sqlite: locked")
	err := Wrap(TransactionNotSeen, cause, "poll timed out")
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose cause")
	}
	if Of(err) != TransactionNotSeen {
		t.Fatalf("Of = %v, want TransactionNotSeen", Of(err))
	}
}

func TestOfPlainError(t *testing.T) {
	if Of(fmt.Errorf("plain")) != Unknown {
		t.Fatal("expected Unknown for a non-walleterr error")
	}
}
