package service

import (
	"context"
	"testing"

	"github.com/fortuna/crease/internal/apperr"
	"github.com/fortuna/crease/internal/store"
)

func TestGetInningState(t *testing.T) {
	ctx := context.Background()

	t.Run("builds and caches the snapshot", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		if _, err := f.svc.RecordBall(ctx, "in1", DeliveryInput{
			Runs:         2,
			BallType:     store.BallNormal,
			ActingUserID: "uma",
		}); err != nil {
			t.Fatalf("RecordBall() error = %v", err)
		}
		if _, err := f.svc.RecordBall(ctx, "in1", DeliveryInput{
			Runs:         1,
			BallType:     store.BallWide,
			ActingUserID: "uma",
		}); err != nil {
			t.Fatalf("RecordBall() error = %v", err)
		}

		snap, err := f.svc.GetInningState(ctx, "in1")
		if err != nil {
			t.Fatalf("GetInningState() error = %v", err)
		}
		if snap.Runs != 4 || snap.Wickets != 0 {
			t.Errorf("snapshot = %d/%d, want 4/0", snap.Runs, snap.Wickets)
		}
		if snap.Overs != "0.1" {
			t.Errorf("overs = %s, want 0.1", snap.Overs)
		}
		if snap.Extras == nil || snap.Extras.Wides != 2 {
			t.Errorf("extras = %+v, want 2 wides", snap.Extras)
		}
		if snap.Chase != nil {
			t.Error("chase figures present for a first innings")
		}
	})

	t.Run("serves a fresh cache entry without hitting the store", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)

		first, err := f.svc.GetInningState(ctx, "in1")
		if err != nil {
			t.Fatalf("GetInningState() error = %v", err)
		}

		// A write that bypasses the service would not invalidate the cache;
		// the stale snapshot is what a reader gets until the next refresh.
		f.innings.innings["in1"].Runs = 99
		second, err := f.svc.GetInningState(ctx, "in1")
		if err != nil {
			t.Fatalf("GetInningState() error = %v", err)
		}
		if second.Runs != first.Runs {
			t.Errorf("Runs = %d, want cached %d", second.Runs, first.Runs)
		}
	})

	t.Run("second innings snapshot carries chase figures", func(t *testing.T) {
		f := newFixture()
		first := f.addInning(1)
		first.Runs = 120
		first.Status = store.InningCompleted
		f.addInning(2)

		snap, err := f.svc.GetInningState(ctx, "in2")
		if err != nil {
			t.Fatalf("GetInningState() error = %v", err)
		}
		if snap.Chase == nil || snap.Chase.Target != 121 {
			t.Errorf("chase = %+v, want target 121", snap.Chase)
		}
	})

	t.Run("unknown inning", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.GetInningState(ctx, "in9")
		wantKind(t, err, apperr.NotFound)
	})
}

func TestGetScorecard(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addInning(1)

	deliveries := []DeliveryInput{
		{Runs: 4, BallType: store.BallNormal, ActingUserID: "uma"},
		{Runs: 1, BallType: store.BallNormal, ActingUserID: "uma"},
		{Runs: 6, BallType: store.BallNormal, ActingUserID: "uma"},
	}
	for i, d := range deliveries {
		if _, err := f.svc.RecordBall(ctx, "in1", d); err != nil {
			t.Fatalf("ball %d: RecordBall() error = %v", i+1, err)
		}
	}

	card, err := f.svc.GetScorecard(ctx, "in1")
	if err != nil {
		t.Fatalf("GetScorecard() error = %v", err)
	}

	if len(card.Batting) != 2 {
		t.Fatalf("batting rows = %d, want 2", len(card.Batting))
	}
	anaya := card.Batting[0]
	if anaya.PlayerID != "anaya" || anaya.Runs != 5 || anaya.BallsFaced != 2 {
		t.Errorf("first row = %+v, want anaya 5 off 2", anaya)
	}
	if anaya.StrikeRate != 250 {
		t.Errorf("strike rate = %v, want 250", anaya.StrikeRate)
	}
	bela := card.Batting[1]
	if bela.PlayerID != "bela" || bela.Runs != 6 || bela.Sixes != 1 {
		t.Errorf("second row = %+v, want bela 6 with a six", bela)
	}

	if len(card.Bowling) != 1 {
		t.Fatalf("bowling rows = %d, want 1", len(card.Bowling))
	}
	kiran := card.Bowling[0]
	if kiran.PlayerID != "kiran" || kiran.RunsConceded != 11 || kiran.Balls != 3 {
		t.Errorf("bowling row = %+v, want kiran 11 off 3", kiran)
	}
	if kiran.Overs != "0.3" {
		t.Errorf("bowling overs = %s, want 0.3", kiran.Overs)
	}
	if kiran.Economy != 22 {
		t.Errorf("economy = %v, want 22", kiran.Economy)
	}
}

func TestGetChase(t *testing.T) {
	ctx := context.Background()

	t.Run("first innings has no chase", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		_, err := f.svc.GetChase(ctx, "in1")
		wantKind(t, err, apperr.Validation)
	})

	t.Run("target is one past the best earlier total", func(t *testing.T) {
		f := newFixture()
		first := f.addInning(1)
		first.Runs = 142
		first.Status = store.InningCompleted
		second := f.addInning(2)
		second.Runs = 100
		second.LegalBalls = 60

		metrics, err := f.svc.GetChase(ctx, "in2")
		if err != nil {
			t.Fatalf("GetChase() error = %v", err)
		}
		if metrics.Target != 143 {
			t.Errorf("target = %d, want 143", metrics.Target)
		}
		if metrics.Needed != 43 {
			t.Errorf("needed = %d, want 43", metrics.Needed)
		}
		if metrics.BallsLeft != 60 {
			t.Errorf("balls left = %d, want 60", metrics.BallsLeft)
		}
	})
}

func TestListBalls(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addInning(1)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.RecordBall(ctx, "in1", DeliveryInput{
			BallType:     store.BallNormal,
			ActingUserID: "uma",
		}); err != nil {
			t.Fatalf("RecordBall() error = %v", err)
		}
	}

	balls, err := f.svc.ListBalls(ctx, "in1")
	if err != nil {
		t.Fatalf("ListBalls() error = %v", err)
	}
	if len(balls) != 3 {
		t.Fatalf("balls = %d, want 3", len(balls))
	}
	if balls[2].Seq != 3 || balls[2].OverNumber != 1 || balls[2].BallInOver != 3 {
		t.Errorf("third ball = seq %d at %d.%d, want 3 at 1.3", balls[2].Seq, balls[2].OverNumber, balls[2].BallInOver)
	}
}

func TestRebuildInning(t *testing.T) {
	ctx := context.Background()

	record := func(t *testing.T, f *fixture) {
		t.Helper()
		deliveries := []DeliveryInput{
			{Runs: 1, BallType: store.BallNormal, ActingUserID: "uma"},
			{Runs: 0, BallType: store.BallWide, ActingUserID: "uma"},
			{Runs: 4, BallType: store.BallNormal, ActingUserID: "uma"},
			{Runs: 2, BallType: store.BallNoBall, ActingUserID: "uma"},
		}
		for i, d := range deliveries {
			if _, err := f.svc.RecordBall(ctx, "in1", d); err != nil {
				t.Fatalf("ball %d: RecordBall() error = %v", i+1, err)
			}
		}
	}

	t.Run("replay reproduces the stored aggregate", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		record(t, f)

		res, err := f.svc.RebuildInning(ctx, "in1")
		if err != nil {
			t.Fatalf("RebuildInning() error = %v", err)
		}
		if !res.Consistent {
			t.Errorf("inconsistent: stored %+v, replayed %+v", res.Stored, res.Replayed)
		}
		if res.Replayed.Runs != 9 || res.Replayed.LegalBalls != 2 {
			t.Errorf("replayed = %+v, want 9 runs off 2 legal balls", res.Replayed)
		}
	})

	t.Run("detects a tampered aggregate", func(t *testing.T) {
		f := newFixture()
		f.addInning(1)
		record(t, f)

		f.innings.innings["in1"].Runs = 50
		res, err := f.svc.RebuildInning(ctx, "in1")
		if err != nil {
			t.Fatalf("RebuildInning() error = %v", err)
		}
		if res.Consistent {
			t.Error("tampered aggregate reported consistent")
		}
	})
}
