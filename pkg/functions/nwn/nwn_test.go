package nwn

import (
	"testing"

	"github.com/zurustar/aurora-nwscript/pkg/functions"
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/objects"
)

func TestTable(t *testing.T) {
	table, err := Table(functions.New())
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if table.Len() != len(Bindings) {
		t.Errorf("Len = %d, want %d", table.Len(), len(Bindings))
	}
	for _, b := range Bindings {
		if table.Name(b.ID) != b.Name {
			t.Errorf("Name(%d) = %q, want %q", b.ID, table.Name(b.ID), b.Name)
		}
		if table.Implemented(b.ID) != (b.Sig == nil) {
			t.Errorf("%s: Implemented = %v", b.Name, table.Implemented(b.ID))
		}
	}
	for _, id := range []uint32{152, 715, 733} {
		if table.Has(id) {
			t.Errorf("NWN table has KotOR routine %d", id)
		}
	}
}

func TestClearAllActionsDefault(t *testing.T) {
	table, err := Table(functions.New())
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := table.Call(9, nil, 1, nwscript.ObjectInvalid, "nw_test")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := ctx.Param(0).Int(); n != 0 || ctx.ParamsSpecified() != 0 {
		t.Errorf("params = %v specified %d", ctx.Params(), ctx.ParamsSpecified())
	}
	if table.Diagnostics().Calls(9) != 1 {
		t.Error("stub call not recorded")
	}
}

func TestLocalsByRoutineNumber(t *testing.T) {
	objs := objects.NewTable()
	door, err := objs.Create(objects.KindDoor, "door")
	if err != nil {
		t.Fatal(err)
	}
	table, err := Table(functions.New(functions.WithObjects(objs)))
	if err != nil {
		t.Fatal(err)
	}

	self := nwscript.NewObject(nwscript.ObjectSelfConstant)
	if _, err := table.Call(55, []nwscript.Variable{self, nwscript.NewString("nOpened"), nwscript.NewInt(2)}, door.ID(), nwscript.ObjectInvalid, "nw_door"); err != nil {
		t.Fatal(err)
	}
	ctx, err := table.Call(51, []nwscript.Variable{self, nwscript.NewString("nOpened")}, door.ID(), nwscript.ObjectInvalid, "nw_door")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := ctx.Return().Int(); n != 2 {
		t.Errorf("GetLocalInt = %d, want 2", n)
	}
}
