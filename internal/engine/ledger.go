package engine

// Override is the single bypass context threaded through every sale path.
// Quota suppresses the squad-size check (force auction, direct assign);
// Balance lets an administrator knowingly push a team negative.
type Override struct {
	Quota   bool
	Balance bool
}

// chargeTeam validates and applies the debit for one purchase. It is the one
// chokepoint for quota and balance enforcement; all-or-nothing.
func chargeTeam(t *Team, price int64, ov Override) error {
	if t.QuotaFull() && !ov.Quota {
		return reject(ReasonQuotaFull, "team %s is at squad quota (%d)", t.Name, t.MaxPlayers)
	}
	if t.Balance()-price < 0 && !ov.Balance {
		return reject(ReasonInsufficientBalance, "team %s balance %d cannot cover %d", t.Name, t.Balance(), price)
	}
	t.Spent += price
	t.PlayersBought++
	t.Overdraft = t.Balance() < 0
	return nil
}

// refundTeam reverses one purchase.
func refundTeam(t *Team, price int64) {
	t.Spent -= price
	if t.PlayersBought > 0 {
		t.PlayersBought--
	}
	t.Overdraft = t.Balance() < 0
}
