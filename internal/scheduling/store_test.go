package scheduling

import (
	"testing"

	"github.com/google/uuid"
)

func TestStore_InsertFindDelete(t *testing.T) {
	st := NewStore()
	physA := uuid.New()
	physB := uuid.New()

	a1 := testAppointment(physA, at(monday, 8, 0), at(monday, 8, 30))
	a2 := testAppointment(physA, at(monday, 9, 0), at(monday, 9, 30))
	b1 := testAppointment(physB, at(monday, 8, 0), at(monday, 8, 30))
	st.Insert(a1)
	st.Insert(a2)
	st.Insert(b1)

	if owner, ok := st.Owner(b1.ID); !ok || owner != physB {
		t.Fatalf("Owner(%s) = %s,%v, want %s", b1.ID, owner, ok, physB)
	}
	if got, ok := st.Find(a2.ID); !ok || got.ID != a2.ID {
		t.Fatalf("Find(%s) = %+v,%v", a2.ID, got, ok)
	}
	if _, ok := st.Find(uuid.New()); ok {
		t.Fatal("Find of unknown id reported a hit")
	}

	if !st.Delete(physA, a1.ID) {
		t.Fatal("Delete reported miss for existing appointment")
	}
	if st.Delete(physA, a1.ID) {
		t.Fatal("second Delete reported a hit")
	}
	if _, ok := st.Owner(a1.ID); ok {
		t.Fatal("deleted appointment still indexed")
	}
	// Wrong physician never reaches another schedule.
	if st.Delete(physA, b1.ID) {
		t.Fatal("Delete crossed physician schedules")
	}
}

func TestStore_AllSortedAcrossPhysicians(t *testing.T) {
	st := NewStore()
	physA := uuid.New()
	physB := uuid.New()

	st.Insert(testAppointment(physA, at(monday, 10, 0), at(monday, 10, 30)))
	st.Insert(testAppointment(physB, at(monday, 8, 0), at(monday, 8, 30)))
	st.Insert(testAppointment(physA, at(monday, 9, 0), at(monday, 9, 30)))

	all := st.All()
	if len(all) != 3 {
		t.Fatalf("All = %d appointments, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Start.Before(all[i-1].Start) {
			t.Fatalf("All not sorted by start: %s before %s", all[i].Start, all[i-1].Start)
		}
	}
}

func TestSchedule_CopyOnRead(t *testing.T) {
	st := NewStore()
	physID := uuid.New()

	appt := testAppointment(physID, at(monday, 8, 0), at(monday, 8, 30))
	st.Insert(appt)

	got, _ := st.Find(appt.ID)
	got.Notes = "mutated copy"

	fresh, _ := st.Find(appt.ID)
	if fresh.Notes != "" {
		t.Fatal("mutating a returned copy leaked into the store")
	}
}

func TestSchedule_InRangeAndOnDate(t *testing.T) {
	st := NewStore()
	physID := uuid.New()
	tuesday := monday.AddDate(0, 0, 1)

	st.Insert(testAppointment(physID, at(monday, 8, 0), at(monday, 8, 30)))
	st.Insert(testAppointment(physID, at(monday, 16, 30), at(monday, 17, 0)))
	st.Insert(testAppointment(physID, at(tuesday, 8, 0), at(tuesday, 8, 30)))

	sched := st.Schedule(physID)

	if got := sched.OnDate(monday); len(got) != 2 {
		t.Fatalf("OnDate(monday) = %d, want 2", len(got))
	}
	// Half-open range: an appointment ending exactly at the range start is out.
	if got := sched.InRange(at(monday, 8, 30), at(monday, 17, 0)); len(got) != 1 {
		t.Fatalf("InRange = %d, want 1", len(got))
	}
	if got := sched.InRange(monday, tuesday.AddDate(0, 0, 1)); len(got) != 3 {
		t.Fatalf("full range = %d, want 3", len(got))
	}
}
