package tenant

import (
	"context"
	"testing"
)

func TestStaticDirectoryLookup(t *testing.T) {
	t.Parallel()

	dir := StaticDirectory{
		"acme":    {Slug: "acme", Name: "Acme Inc", Active: true},
		"dormant": {Slug: "dormant", Name: "Dormant Co", Active: false},
	}

	ctx := context.Background()

	if c, ok, err := dir.Lookup(ctx, "acme"); err != nil || !ok || c.Name != "Acme Inc" {
		t.Fatalf("Lookup(acme) = %+v, %v, %v", c, ok, err)
	}
	if _, ok, err := dir.Lookup(ctx, "dormant"); err != nil || ok {
		t.Fatalf("inactive tenant should not resolve, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := dir.Lookup(ctx, "missing"); err != nil || ok {
		t.Fatalf("unknown tenant should not resolve, got ok=%v err=%v", ok, err)
	}
}
