package objects

import (
	"errors"
	"testing"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

func TestTable_CreateLookup(t *testing.T) {
	tbl := NewTable()
	door, err := tbl.Create(KindDoor, "door_01")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	obj, ok := tbl.Lookup(door.ID())
	if !ok {
		t.Fatal("Lookup failed for a live object")
	}
	if obj.Tag() != "door_01" {
		t.Errorf("Tag() = %q, want door_01", obj.Tag())
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tbl.Len())
	}
}

func TestTable_HandlesNeverCollideWithConstants(t *testing.T) {
	tbl := NewTable()
	for i := 0; i < 100; i++ {
		obj, err := tbl.Create(KindCreature, "")
		if err != nil {
			t.Fatal(err)
		}
		switch obj.ID() {
		case nwscript.ObjectSelfConstant, nwscript.ObjectInvalidConstant, nwscript.ObjectInvalid:
			t.Fatalf("handle %#x collides with a script constant", obj.ID())
		}
	}
}

func TestTable_StaleHandle(t *testing.T) {
	tbl := NewTable()
	old, _ := tbl.Create(KindPlaceable, "chest")
	oldID := old.ID()

	if err := tbl.Destroy(oldID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, ok := tbl.Lookup(oldID); ok {
		t.Error("destroyed object still resolves")
	}

	reused, _ := tbl.Create(KindPlaceable, "chest")
	if reused.ID() == oldID {
		t.Fatal("reused slot produced the same handle")
	}
	if idx, _ := splitID(reused.ID()); idx != 0 {
		t.Errorf("slot was not reused, index = %d", idx)
	}
	if _, ok := tbl.Lookup(oldID); ok {
		t.Error("stale handle resolves to the new occupant")
	}

	if err := tbl.Destroy(oldID); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Destroy(stale) = %v, want ErrObjectNotFound", err)
	}
}

func TestTable_InvalidHandles(t *testing.T) {
	tbl := NewTable()
	tbl.Create(KindCreature, "")

	for _, id := range []nwscript.ObjectID{0, 1, nwscript.ObjectInvalid, makeID(500, 1)} {
		if _, ok := tbl.Lookup(id); ok {
			t.Errorf("Lookup(%#x) succeeded", id)
		}
	}
}

func TestTable_FindByTag(t *testing.T) {
	tbl := NewTable()
	a, _ := tbl.Create(KindWaypoint, "wp")
	tbl.Create(KindWaypoint, "other")
	b, _ := tbl.Create(KindWaypoint, "wp")

	tests := []struct {
		tag  string
		nth  int
		want nwscript.ObjectID
		ok   bool
	}{
		{"wp", 0, a.ID(), true},
		{"wp", 1, b.ID(), true},
		{"wp", 2, 0, false},
		{"missing", 0, 0, false},
	}
	for _, tt := range tests {
		obj, ok := tbl.FindByTag(tt.tag, tt.nth)
		if ok != tt.ok {
			t.Errorf("FindByTag(%q, %d) ok = %v", tt.tag, tt.nth, ok)
			continue
		}
		if ok && obj.ID() != tt.want {
			t.Errorf("FindByTag(%q, %d) = %#x, want %#x", tt.tag, tt.nth, obj.ID(), tt.want)
		}
	}
}

func TestTable_OnDestroy(t *testing.T) {
	tbl := NewTable()
	var destroyed []nwscript.ObjectID
	tbl.OnDestroy(func(id nwscript.ObjectID) { destroyed = append(destroyed, id) })

	obj, _ := tbl.Create(KindCreature, "")
	tbl.Destroy(obj.ID())
	if len(destroyed) != 1 || destroyed[0] != obj.ID() {
		t.Errorf("OnDestroy saw %v", destroyed)
	}
}

func TestTable_ModuleAndPCs(t *testing.T) {
	tbl := NewTable()
	if tbl.ModuleObject() != nwscript.ObjectInvalid {
		t.Error("empty table has a module")
	}
	mod, _ := tbl.Create(KindModule, "mod")
	pc1, _ := tbl.Create(KindCreature, "pc1")
	tbl.Create(KindCreature, "npc")
	pc2, _ := tbl.Create(KindCreature, "pc2")
	pc1.SetPC(true)
	pc2.SetPC(true)

	if tbl.ModuleObject() != mod.ID() {
		t.Errorf("ModuleObject() = %#x, want %#x", tbl.ModuleObject(), mod.ID())
	}
	pcs := tbl.PCs()
	if len(pcs) != 2 || pcs[0] != pc1.ID() || pcs[1] != pc2.ID() {
		t.Errorf("PCs() = %v", pcs)
	}
}

func TestObject_Properties(t *testing.T) {
	tbl := NewTable()
	c, _ := tbl.Create(KindCreature, "npc")

	c.SetMaxHitPoints(20)
	c.SetCurrentHitPoints(15)
	c.SetMaxHitPoints(10)
	if c.CurrentHitPoints() != 10 {
		t.Errorf("current HP not clamped to max: %d", c.CurrentHitPoints())
	}

	c.SetMinOneHP(true)
	c.SetCurrentHitPoints(-5)
	if c.CurrentHitPoints() != 1 {
		t.Errorf("MinOneHP allowed HP %d", c.CurrentHitPoints())
	}

	c.AddClass(3, 4)
	c.AddClass(5, 1)
	c.AddClass(3, 2)
	if c.LevelByClass(3) != 6 || c.LevelByClass(9) != 0 {
		t.Errorf("LevelByClass = %d, %d", c.LevelByClass(3), c.LevelByClass(9))
	}
	if class, level, ok := c.ClassByPosition(1); !ok || class != 5 || level != 1 {
		t.Errorf("ClassByPosition(1) = %d, %d, %v", class, level, ok)
	}
	if len(c.Classes()) != 2 {
		t.Errorf("Classes() = %v", c.Classes())
	}
	if _, _, ok := c.ClassByPosition(2); ok {
		t.Error("ClassByPosition(2) should not exist")
	}

	if c.LastOpenedBy() != nwscript.ObjectInvalid {
		t.Error("fresh object has an opener")
	}
	c.Open(42)
	c.Close(43)
	if c.IsOpen() || c.LastOpenedBy() != 42 || c.LastClosedBy() != 43 {
		t.Errorf("open/close state wrong: open=%v by %d/%d", c.IsOpen(), c.LastOpenedBy(), c.LastClosedBy())
	}
}

func TestObject_Locals(t *testing.T) {
	tbl := NewTable()
	o, _ := tbl.Create(KindCreature, "")

	o.SetLocal("Count", nwscript.NewInt(3))
	o.SetLocal("count", nwscript.NewString("three"))

	if i, _ := o.Local("COUNT", nwscript.KindInt).Int(); i != 3 {
		t.Errorf("int local = %d, want 3", i)
	}
	if s, _ := o.Local("count", nwscript.KindString).String(); s != "three" {
		t.Errorf("string local = %q", s)
	}
	if f, err := o.Local("count", nwscript.KindFloat).Float(); err != nil || f != 0 {
		t.Errorf("missing float local = %v, %v", f, err)
	}
	if id, _ := o.Local("x", nwscript.KindObject).Object(); id != nwscript.ObjectInvalid {
		t.Errorf("missing object local = %#x", id)
	}

	o.DeleteLocal("count", nwscript.KindInt)
	if i, _ := o.Local("count", nwscript.KindInt).Int(); i != 0 {
		t.Errorf("deleted local = %d", i)
	}
}
