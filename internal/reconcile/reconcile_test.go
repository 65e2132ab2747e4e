package reconcile

import (
	"testing"

	"github.com/magma/magma-sub003/internal/datamodel"
	"github.com/magma/magma-sub003/internal/devicecfg"
)

const plmnPath = "Device.PLMNList.%d."

var model = datamodel.MustNew(datamodel.Spec{
	Name: "reconcile-test",
	Params: map[datamodel.ParameterName]datamodel.ParamDescriptor{
		datamodel.ParamPCI:        {Path: "Device.PCI", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamTAC:        {Path: "Device.TAC", Type: datamodel.TypeUnsignedInt},
		datamodel.ParamAdminState: {Path: "Device.AdminState", Type: datamodel.TypeBoolean},
		datamodel.ParamSASFCCID:   {NoWire: true, Type: datamodel.TypeString},
		datamodel.ParamNumPLMNs:   {Path: "Device.PLMNListNumberOfEntries", Type: datamodel.TypeUnsignedInt, ReadOnly: true},
	},
	Families: []datamodel.ObjectFamily{{
		Name:       datamodel.FamilyPLMN,
		Size:       datamodel.NumPLMNSlots,
		ObjectPath: plmnPath,
		ParentPath: "Device.PLMNList.",
		NameFunc:   datamodel.PLMNObject,
		MemberFunc: datamodel.PLMNMember,
		Members: map[string]datamodel.ParamDescriptor{
			datamodel.PLMNFieldEnable:  {Path: plmnPath + "Enable", Type: datamodel.TypeBoolean},
			datamodel.PLMNFieldPrimary: {Path: plmnPath + "IsPrimary", Type: datamodel.TypeBoolean},
			datamodel.PLMNFieldPLMNID:  {Path: plmnPath + "PLMNID", Type: datamodel.TypeString},
		},
	}},
})

func plmn(c *devicecfg.Configuration, slot int, enable, primary bool, id string) {
	obj := datamodel.PLMNObject(slot)
	c.SetObjectParam(obj, datamodel.PLMNEnable(slot), enable)
	c.SetObjectParam(obj, datamodel.PLMNPrimary(slot), primary)
	c.SetObjectParam(obj, datamodel.PLMNID(slot), id)
}

func TestReconcileIdempotent(t *testing.T) {
	snapshots := map[string]*devicecfg.Configuration{
		"empty": devicecfg.New(),
	}

	scalars := devicecfg.New()
	scalars.Set(datamodel.ParamPCI, 260)
	scalars.Set(datamodel.ParamAdminState, false)
	scalars.Set(datamodel.ParamSASFCCID, "fcc")
	snapshots["scalars"] = scalars

	objects := scalars.Clone()
	plmn(objects, 1, true, true, "00101")
	plmn(objects, 3, false, false, "00102")
	snapshots["objects"] = objects

	for name, d := range snapshots {
		t.Run(name, func(t *testing.T) {
			if plan := Reconcile(d, d, model); !plan.Empty() {
				t.Errorf("reconcile(d, d) = %+v", plan)
			}
			if plan := Reconcile(d, d.Clone(), model); !plan.Empty() {
				t.Errorf("reconcile(d, clone) = %+v", plan)
			}
		})
	}
}

func TestReconcilePLMNSlots(t *testing.T) {
	desired := devicecfg.New()
	plmn(desired, 1, true, true, "00101")

	observed := devicecfg.New()
	plmn(observed, 2, true, false, "00101")

	plan := Reconcile(desired, observed, model)

	if len(plan.Delete) != 1 || plan.Delete[0] != datamodel.PLMNObject(2) {
		t.Errorf("delete = %v, want [PLMN 2]", plan.Delete)
	}
	if len(plan.Add) != 1 || plan.Add[0] != datamodel.PLMNObject(1) {
		t.Errorf("add = %v, want [PLMN 1]", plan.Add)
	}
	if len(plan.Set) == 0 {
		t.Fatal("expected values for slot 1")
	}
	for _, s := range plan.Set {
		if s.Object != datamodel.PLMNObject(1) {
			t.Errorf("unexpected set %+v", s)
		}
	}
	if len(plan.Set) != 3 {
		t.Errorf("got %d sets, want every member of slot 1", len(plan.Set))
	}
}

func TestReconcileScalarDiff(t *testing.T) {
	desired := devicecfg.New()
	desired.Set(datamodel.ParamTAC, 2)
	desired.Set(datamodel.ParamPCI, 260)
	desired.Set(datamodel.ParamSASFCCID, "fcc")

	observed := devicecfg.New()
	observed.Set(datamodel.ParamPCI, 260.0)

	plan := Reconcile(desired, observed, model)
	if len(plan.Set) != 1 || plan.Set[0].Name != datamodel.ParamTAC || plan.Set[0].Value != 2 {
		t.Fatalf("set = %+v, want only TAC", plan.Set)
	}
	if len(plan.Delete) != 0 || len(plan.Add) != 0 {
		t.Errorf("unexpected object changes %+v", plan)
	}
}

func TestReconcileDisablesObject(t *testing.T) {
	desired := devicecfg.New()
	plmn(desired, 1, true, true, "00101")
	plmn(desired, 2, false, false, "00102")

	observed := devicecfg.New()
	plmn(observed, 1, true, true, "00101")
	plmn(observed, 2, true, false, "00102")

	plan := Reconcile(desired, observed, model)
	if len(plan.Delete) != 1 || plan.Delete[0] != datamodel.PLMNObject(2) {
		t.Errorf("delete = %v", plan.Delete)
	}
	if len(plan.Add) != 0 || len(plan.Set) != 0 {
		t.Errorf("unexpected changes %+v", plan)
	}
}

func TestReconcileSkipsReadOnly(t *testing.T) {
	desired := devicecfg.New()
	desired.Set(datamodel.ParamNumPLMNs, 1)
	desired.Set(datamodel.ParamPCI, 260)

	observed := devicecfg.New()
	observed.Set(datamodel.ParamNumPLMNs, 2)

	plan := Reconcile(desired, observed, model)
	if len(plan.Set) != 1 || plan.Set[0].Name != datamodel.ParamPCI {
		t.Errorf("set = %+v, want only PCI", plan.Set)
	}
}

func TestReconcileKeepsObjectDisabledOnBothSides(t *testing.T) {
	desired := devicecfg.New()
	plmn(desired, 2, false, false, "00102")

	observed := devicecfg.New()
	plmn(observed, 2, false, true, "00102")

	plan := Reconcile(desired, observed, model)
	if len(plan.Delete) != 0 || len(plan.Add) != 0 {
		t.Errorf("object changes %+v, want none", plan)
	}
	if len(plan.Set) != 1 || plan.Set[0].Name != datamodel.PLMNPrimary(2) || plan.Set[0].Value != false {
		t.Errorf("set = %+v, want only the primary flag", plan.Set)
	}
}

func TestReconcileMemberChangeInExistingObject(t *testing.T) {
	desired := devicecfg.New()
	plmn(desired, 1, true, true, "00102")

	observed := devicecfg.New()
	plmn(observed, 1, true, true, "00101")

	plan := Reconcile(desired, observed, model)
	if len(plan.Set) != 1 || plan.Set[0].Name != datamodel.PLMNID(1) || plan.Set[0].Value != "00102" {
		t.Errorf("set = %+v", plan.Set)
	}
}

func TestReconcileSortedOutput(t *testing.T) {
	desired := devicecfg.New()
	desired.Set(datamodel.ParamTAC, 1)
	desired.Set(datamodel.ParamPCI, 2)
	desired.Set(datamodel.ParamAdminState, true)
	plmn(desired, 1, true, true, "00101")

	observed := devicecfg.New()
	plmn(observed, 4, true, false, "1")
	plmn(observed, 2, true, false, "1")

	first := Reconcile(desired, observed, model)
	for i := 0; i < 10; i++ {
		again := Reconcile(desired, observed, model)
		if len(again.Set) != len(first.Set) {
			t.Fatal("plan size changed between runs")
		}
		for j := range again.Set {
			if again.Set[j].Name != first.Set[j].Name {
				t.Fatalf("order changed at %d: %q vs %q", j, again.Set[j].Name, first.Set[j].Name)
			}
		}
	}
	if first.Delete[0] != datamodel.PLMNObject(2) || first.Delete[1] != datamodel.PLMNObject(4) {
		t.Errorf("delete order %v", first.Delete)
	}
	if first.Set[0].Name != datamodel.ParamAdminState {
		t.Errorf("scalars should come first sorted, got %q", first.Set[0].Name)
	}
}
