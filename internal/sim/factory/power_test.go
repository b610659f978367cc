package factory

import (
	"slices"
	"testing"

	"factorycraft.ai/internal/protocol"
)

func TestPower_ShedsNewestFirst(t *testing.T) {
	e := testEngine(t, nil)
	st := mustApply(t, e, e.NewState(7),
		BuildGenerator{Type: "crank", X: 7, Y: 7},
		BuildMachine{X: 0, Y: 0},
		BuildMachine{X: 2, Y: 0},
		AssignRecipe{MachineID: "M1", RecipeID: "planks"},
		AssignRecipe{MachineID: "M2", RecipeID: "planks"},
	)
	if st.Energy.Consumed != 6 || st.Energy.Produced != 4 {
		t.Fatalf("energy=%+v", st.Energy)
	}

	next, rep := e.Step(st)
	if !slices.Equal(rep.Shed, []string{"M2"}) {
		t.Fatalf("shed=%v want [M2]", rep.Shed)
	}
	m1, _ := next.Machine("M1")
	m2, _ := next.Machine("M2")
	if m1.Status != StatusWorking || m2.Status != StatusBlocked {
		t.Fatalf("statuses %s/%s", m1.Status, m2.Status)
	}
	if next.Energy.Consumed > next.Energy.Produced {
		t.Fatalf("consumed %d > produced %d after allocation", next.Energy.Consumed, next.Energy.Produced)
	}
}

func TestPower_BlockedStaysBlockedUntilUnblocked(t *testing.T) {
	e := testEngine(t, nil)
	st := mustApply(t, e, e.NewState(7),
		BuildGenerator{Type: "crank", X: 7, Y: 7},
		BuildMachine{X: 0, Y: 0},
		BuildMachine{X: 2, Y: 0},
		AssignRecipe{MachineID: "M1", RecipeID: "planks"},
		AssignRecipe{MachineID: "M2", RecipeID: "planks"},
		AdvanceTick{},
		RemoveMachine{ID: "M1"},
		AdvanceTick{},
	)
	m2, _ := st.Machine("M2")
	if m2.Status != StatusBlocked {
		t.Fatalf("M2 status=%s, want blocked with spare power", m2.Status)
	}

	st = mustApply(t, e, st, UnblockMachine{ID: "M2"}, AdvanceTick{})
	m2, _ = st.Machine("M2")
	if m2.Status != StatusWorking {
		t.Fatalf("M2 status=%s want working", m2.Status)
	}

	_, err := e.Apply(st, UnblockMachine{ID: "M2"})
	if RejectionCode(err) != protocol.ErrConflict {
		t.Fatalf("unblocking a running machine: %v", err)
	}
}

func TestPower_DisabledAndUnassignedDrawNothing(t *testing.T) {
	e := testEngine(t, nil)
	st := mustApply(t, e, e.NewState(7),
		BuildMachine{X: 0, Y: 0},
		BuildMachine{X: 2, Y: 0},
		AssignRecipe{MachineID: "M1", RecipeID: "planks"},
		ToggleMachine{ID: "M1"},
	)
	if st.Energy.Consumed != 0 {
		t.Fatalf("consumed=%d want 0", st.Energy.Consumed)
	}
	next, rep := e.Step(st)
	if len(rep.Shed) != 0 {
		t.Fatalf("shed=%v", rep.Shed)
	}
	for _, m := range next.Machines {
		if m.Status != StatusIdle {
			t.Fatalf("%s status=%s want idle", m.ID, m.Status)
		}
	}
}
