package item

import (
	"testing"

	"github.com/df-mc/dragonfly/server/world"
)

func TestEyeOfEnderRegistered(t *testing.T) {
	it, ok := world.ItemByName("minecraft:ender_eye", 0)
	if !ok {
		t.Fatalf("expected minecraft:ender_eye to be registered")
	}
	if _, ok := it.(EyeOfEnder); !ok {
		t.Fatalf("expected EyeOfEnder, got %T", it)
	}
}
