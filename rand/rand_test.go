package rand

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerateSessionID(t *testing.T) {
	a, b := GenerateSessionID(), GenerateSessionID()
	if a == b {
		t.Errorf("expected distinct ids, but got %s twice", a)
	}
	id, err := uuid.Parse(a)
	if err != nil {
		t.Fatalf("expected a valid uuid, but got %q: %v", a, err)
	}
	if id.Version() != 4 {
		t.Errorf("expected a version 4 uuid, but got version %d", id.Version())
	}
}
