package service

import (
	"context"
	"testing"

	"github.com/fortuna/crease/internal/apperr"
	"github.com/fortuna/crease/internal/scoring"
	"github.com/fortuna/crease/internal/store"
)

func TestSelectBatsman(t *testing.T) {
	ctx := context.Background()

	// dismiss opens the striker slot by bowling out anaya.
	dismiss := func(t *testing.T, f *fixture) {
		t.Helper()
		_, err := f.svc.RecordBall(ctx, "in1", DeliveryInput{
			BallType:     store.BallNormal,
			Wicket:       &scoring.Wicket{Kind: store.DismissalBowled, DismissedPlayerID: "anaya"},
			ActingUserID: "uma",
		})
		if err != nil {
			t.Fatalf("RecordBall() error = %v", err)
		}
	}

	t.Run("fills the open slot", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		dismiss(t, f)

		in, err := f.svc.SelectBatsman(ctx, "in1", "chitra", "uma")
		if err != nil {
			t.Fatalf("SelectBatsman() error = %v", err)
		}
		if in.StrikerID.String != "chitra" {
			t.Errorf("striker = %q, want chitra", in.StrikerID.String)
		}
		if f.innings.innings["in1"].StrikerID.String != "chitra" {
			t.Error("selection not persisted")
		}
	})

	t.Run("no slot open", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		_, err := f.svc.SelectBatsman(ctx, "in1", "chitra", "uma")
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("player already at the crease", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		dismiss(t, f)
		_, err := f.svc.SelectBatsman(ctx, "in1", "bela", "uma")
		wantKind(t, err, apperr.Validation)
	})

	t.Run("dismissed player may not return", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		dismiss(t, f)
		_, err := f.svc.SelectBatsman(ctx, "in1", "anaya", "uma")
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("player off the batting roster", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		dismiss(t, f)
		_, err := f.svc.SelectBatsman(ctx, "in1", "kiran", "uma")
		wantKind(t, err, apperr.Validation)
	})

	t.Run("completed inning", func(t *testing.T) {
		f := newFixture()
		in := f.addInning(1)
		in.Status = store.InningCompleted
		in.StrikerID = nullable("")
		_, err := f.svc.SelectBatsman(ctx, "in1", "chitra", "uma")
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("non-scorer", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		dismiss(t, f)
		_, err := f.svc.SelectBatsman(ctx, "in1", "chitra", "zoya")
		wantKind(t, err, apperr.Permission)
	})

	t.Run("missing player id", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		_, err := f.svc.SelectBatsman(ctx, "in1", "", "uma")
		wantKind(t, err, apperr.Validation)
	})
}

func TestSelectBowler(t *testing.T) {
	ctx := context.Background()

	// bowlOver completes kiran's over with six dot balls, opening the bowler
	// slot.
	bowlOver := func(t *testing.T, f *fixture) {
		t.Helper()
		for i := 0; i < 6; i++ {
			if _, err := f.svc.RecordBall(ctx, "in1", DeliveryInput{
				BallType:     store.BallNormal,
				ActingUserID: "uma",
			}); err != nil {
				t.Fatalf("ball %d: RecordBall() error = %v", i+1, err)
			}
		}
	}

	t.Run("assigns the next over", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		bowlOver(t, f)

		in, err := f.svc.SelectBowler(ctx, "in1", "meena", "uma")
		if err != nil {
			t.Fatalf("SelectBowler() error = %v", err)
		}
		if in.CurrentBowlerID.String != "meena" {
			t.Errorf("bowler = %q, want meena", in.CurrentBowlerID.String)
		}
	})

	t.Run("over in progress", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		_, err := f.svc.SelectBowler(ctx, "in1", "meena", "uma")
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("no consecutive overs", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		bowlOver(t, f)
		_, err := f.svc.SelectBowler(ctx, "in1", "kiran", "uma")
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("previous-over bowler may return after a gap", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		bowlOver(t, f)
		if _, err := f.svc.SelectBowler(ctx, "in1", "meena", "uma"); err != nil {
			t.Fatalf("SelectBowler() error = %v", err)
		}
		bowlOver(t, f)
		if _, err := f.svc.SelectBowler(ctx, "in1", "kiran", "uma"); err != nil {
			t.Fatalf("SelectBowler() after a gap error = %v", err)
		}
	})

	t.Run("player off the bowling roster", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		bowlOver(t, f)
		_, err := f.svc.SelectBowler(ctx, "in1", "anaya", "uma")
		wantKind(t, err, apperr.Validation)
	})

	t.Run("completed inning", func(t *testing.T) {
		f := newFixture()
		in := f.addInning(1)
		in.Status = store.InningCompleted
		in.CurrentBowlerID = nullable("")
		_, err := f.svc.SelectBowler(ctx, "in1", "meena", "uma")
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("non-scorer", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		bowlOver(t, f)
		_, err := f.svc.SelectBowler(ctx, "in1", "meena", "zoya")
		wantKind(t, err, apperr.Permission)
	})
}
