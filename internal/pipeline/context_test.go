package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func contextRegistry(t *testing.T) *Registry {
	t.Helper()
	repo := newMockRepository()
	repo.docs["p1"] = testDocument("p1", "flow", `{
		"start": {
			"recognition": {"type": "color_match", "count": 5, "lower": [0, 0, 0]},
			"next": ["done"],
			"timeout_ms": 3000
		},
		"done": {}
	}`)

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	return reg
}

func TestContextGetPipelineData(t *testing.T) {
	ctx := NewContext(contextRegistry(t))

	node := ctx.GetPipelineData("start")
	if !node.Enabled || node.TimeoutMS != 3000 {
		t.Errorf("unexpected node: %+v", node)
	}

	// Unknown names resolve to a disabled zero-value node, never an error.
	missing := ctx.GetPipelineData("no-such-node")
	if missing.Name != "no-such-node" {
		t.Errorf("expected name carried through, got %q", missing.Name)
	}
	if missing.Enabled {
		t.Error("unknown node must be disabled")
	}
}

func TestContextOverridePipeline(t *testing.T) {
	t.Run("partial field override", func(t *testing.T) {
		ctx := NewContext(contextRegistry(t))

		err := ctx.OverridePipeline([]byte(`{"start": {"timeout_ms": 500}}`))
		if err != nil {
			t.Fatalf("override failed: %v", err)
		}

		node := ctx.GetPipelineData("start")
		if node.TimeoutMS != 500 {
			t.Errorf("expected overridden timeout 500, got %d", node.TimeoutMS)
		}
		if len(node.Next) != 1 || node.Next[0] != "done" {
			t.Errorf("untouched fields must survive, got next=%v", node.Next)
		}
	})

	t.Run("nested recognition merge", func(t *testing.T) {
		ctx := NewContext(contextRegistry(t))

		err := ctx.OverridePipeline([]byte(`{"start": {"recognition": {"count": 99}}}`))
		if err != nil {
			t.Fatalf("override failed: %v", err)
		}

		node := ctx.GetPipelineData("start")
		reco := string(node.Recognition)
		for _, want := range []string{`"count":99`, `"type":"color_match"`} {
			if !strings.Contains(reco, want) {
				t.Errorf("expected recognition to contain %s, got %s", want, reco)
			}
		}
	})

	t.Run("creates new node", func(t *testing.T) {
		ctx := NewContext(contextRegistry(t))

		err := ctx.OverridePipeline([]byte(`{"injected": {"next": ["start"]}}`))
		if err != nil {
			t.Fatalf("override failed: %v", err)
		}

		node := ctx.GetPipelineData("injected")
		if !node.Enabled {
			t.Error("new override node must default to enabled")
		}
		if len(node.Next) != 1 || node.Next[0] != "start" {
			t.Errorf("unexpected next: %v", node.Next)
		}
	})

	t.Run("overrides stack", func(t *testing.T) {
		ctx := NewContext(contextRegistry(t))

		if err := ctx.OverridePipeline([]byte(`{"start": {"timeout_ms": 500}}`)); err != nil {
			t.Fatalf("first override failed: %v", err)
		}
		if err := ctx.OverridePipeline([]byte(`{"start": {"enabled": false}}`)); err != nil {
			t.Fatalf("second override failed: %v", err)
		}

		node := ctx.GetPipelineData("start")
		if node.Enabled {
			t.Error("second override must apply")
		}
		if node.TimeoutMS != 500 {
			t.Error("first override must survive the second")
		}
	})

	t.Run("scoped to the context instance", func(t *testing.T) {
		reg := contextRegistry(t)
		a := NewContext(reg)
		b := NewContext(reg)

		if err := a.OverridePipeline([]byte(`{"start": {"enabled": false}}`)); err != nil {
			t.Fatalf("override failed: %v", err)
		}

		if b.GetPipelineData("start").Enabled == false {
			t.Error("override leaked into sibling context")
		}
		if node, _ := reg.GetNode("start"); !node.Enabled {
			t.Error("override leaked into registry")
		}
	})

	t.Run("rejects malformed patch", func(t *testing.T) {
		ctx := NewContext(contextRegistry(t))

		err := ctx.OverridePipeline([]byte(`{"start": `))
		if !errors.Is(err, ErrInvalidOverride) {
			t.Errorf("expected ErrInvalidOverride, got: %v", err)
		}

		err = ctx.OverridePipeline([]byte(`{"start": {"timeout_ms": "soon"}}`))
		if !errors.Is(err, ErrInvalidOverride) {
			t.Errorf("expected ErrInvalidOverride, got: %v", err)
		}

		// Failed overrides must leave the layer untouched.
		if node := ctx.GetPipelineData("start"); node.TimeoutMS != 3000 {
			t.Errorf("override layer dirtied by failed patch: %+v", node)
		}
	})
}
