package suggest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryRecents(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRecents(0)

	for _, q := range []string{"a", "b", "  ", "c", "a", "d", "e", "f"} {
		if err := r.Add(ctx, q); err != nil {
			t.Fatal(err)
		}
	}

	got, err := r.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"f", "e", "d", "a", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}

	top, _ := r.List(ctx, 2)
	if diff := cmp.Diff([]string{"f", "e"}, top); diff != "" {
		t.Errorf("List(2) (-want +got):\n%s", diff)
	}
}

func ExampleMemoryRecents() {
	ctx := context.Background()
	r := NewMemoryRecents(3)
	for _, q := range []string{"cafe", "mall", "cafe", "pvr"} {
		_ = r.Add(ctx, q)
	}
	list, _ := r.List(ctx, 0)
	fmt.Println(list)
	// Output: [pvr cafe mall]
}
