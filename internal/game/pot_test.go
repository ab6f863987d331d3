package game

import "testing"

func TestComputePotsEqual(t *testing.T) {
	pots := ComputePots([]Contribution{
		{PlayerID: "a", Amount: 100, Live: true},
		{PlayerID: "b", Amount: 100, Live: true},
	}, 0)
	if len(pots) != 1 || pots[0].Amount != 200 || len(pots[0].Eligible) != 2 {
		t.Fatalf("expected single 200 pot, got %+v", pots)
	}
}

func TestComputePotsSideAndRefund(t *testing.T) {
	pots := ComputePots([]Contribution{
		{PlayerID: "short", Amount: 100, Live: true},
		{PlayerID: "mid", Amount: 250, Live: true},
		{PlayerID: "big", Amount: 400, Live: true},
		{PlayerID: "folded", Amount: 50, Live: false},
	}, 0)
	if len(pots) != 3 {
		t.Fatalf("expected 3 pots, got %+v", pots)
	}
	if pots[0].Amount != 350 || len(pots[0].Eligible) != 3 {
		t.Fatalf("unexpected main pot %+v", pots[0])
	}
	if pots[1].Amount != 300 || len(pots[1].Eligible) != 2 {
		t.Fatalf("unexpected side pot %+v", pots[1])
	}
	if pots[2].Amount != 150 || len(pots[2].Eligible) != 1 || pots[2].Eligible[0] != "big" {
		t.Fatalf("uncalled chips should return to big, got %+v", pots[2])
	}
}

func TestComputePotsDeadMoneyToMain(t *testing.T) {
	pots := ComputePots([]Contribution{
		{PlayerID: "a", Amount: 20, Live: true},
		{PlayerID: "b", Amount: 20, Live: true},
	}, 10)
	if len(pots) != 1 || pots[0].Amount != 50 {
		t.Fatalf("expected dead money in main pot, got %+v", pots)
	}
}
