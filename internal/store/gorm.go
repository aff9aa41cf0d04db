package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ulmjahfar/playlivepro/internal/engine"
)

// Gorm is the Postgres-backed store.
type Gorm struct {
	db *gorm.DB

	mu  sync.Mutex
	ids map[string]string // tournament code -> id
}

func Open(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(
		&TournamentRecord{},
		&PlayerRecord{},
		&TeamRecord{},
		&SeatRecord{},
		&SeatPolicyRecord{},
		&BidRecord{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewGorm(db), nil
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db, ids: map[string]string{}}
}

func (g *Gorm) tournamentID(ctx context.Context, code string) (string, error) {
	g.mu.Lock()
	id, ok := g.ids[code]
	g.mu.Unlock()
	if ok {
		return id, nil
	}
	var rec TournamentRecord
	err := g.db.WithContext(ctx).Select("id").Where("code = ?", code).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	g.mu.Lock()
	g.ids[code] = rec.ID
	g.mu.Unlock()
	return rec.ID, nil
}

func (g *Gorm) LoadState(ctx context.Context, code string) (*engine.State, error) {
	db := g.db.WithContext(ctx)

	var rec TournamentRecord
	err := db.Where("code = ?", code).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s := engine.NewState(rec.ID, rec.Code)
	s.Status = engine.Status(rec.Status)
	if s.Status == "" {
		s.Status = engine.StatusNotStarted
	}
	s.Locked = rec.Locked
	s.Round = rec.Round
	s.ActivePlayerID = rec.ActivePlayerID
	s.CurrentBid = rec.CurrentBid
	s.LeadingTeamID = rec.LeadingTeamID
	s.QuotaBypass = rec.QuotaBypass
	s.Settings = unmarshalSettings(rec.SettingsJSON)

	var players []PlayerRecord
	if err := db.Where("tournament_id = ?", rec.ID).Find(&players).Error; err != nil {
		return nil, err
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Seq < players[j].Seq })
	for _, pr := range players {
		p := &engine.Player{
			ID:             pr.ID,
			Name:           pr.Name,
			BasePrice:      pr.BasePrice,
			Status:         engine.PlayerStatus(pr.Status),
			SoldPrice:      pr.SoldPrice,
			SoldToTeamID:   pr.SoldToTeamID,
			TxType:         engine.TxType(pr.TxType),
			WithdrawReason: pr.WithdrawReason,
			PendedSeq:      pr.PendedSeq,
		}
		if p.Status == "" {
			p.Status = engine.PlayerAvailable
		}
		s.AddPlayer(p)
	}

	var teams []TeamRecord
	if err := db.Where("tournament_id = ?", rec.ID).Find(&teams).Error; err != nil {
		return nil, err
	}
	for _, tr := range teams {
		s.AddTeam(&engine.Team{
			ID:            tr.ID,
			Name:          tr.Name,
			Code:          tr.Code,
			Budget:        tr.Budget,
			Spent:         tr.Spent,
			PlayersBought: tr.PlayersBought,
			MaxPlayers:    tr.MaxPlayers,
			Overdraft:     tr.Overdraft,
		})
	}

	var seats []SeatRecord
	if err := db.Where("tournament_id = ?", rec.ID).Find(&seats).Error; err != nil {
		return nil, err
	}
	for _, sr := range seats {
		s.AddSeat(sr.seat())
	}

	var policies []SeatPolicyRecord
	if err := db.Where("tournament_id = ?", rec.ID).Find(&policies).Error; err != nil {
		return nil, err
	}
	for _, pr := range policies {
		s.Policies[pr.TeamID] = engine.SeatPolicy{
			Mode:               engine.PolicyMode(pr.Mode),
			VotersRequired:     pr.VotersRequired,
			AllowDynamicQuorum: pr.AllowDynamicQuorum,
			AllowLeadOverride:  pr.AllowLeadOverride,
		}
	}

	var bids []BidRecord
	if err := db.Where("tournament_id = ?", rec.ID).Order("id").Find(&bids).Error; err != nil {
		return nil, err
	}
	for _, br := range bids {
		if p, ok := s.Players[br.PlayerID]; ok {
			p.Bids = append(p.Bids, engine.Bid{TeamID: br.TeamID, Amount: br.Amount, At: br.At})
		}
	}

	s.Normalize()
	return s, nil
}

func (g *Gorm) SaveSession(ctx context.Context, s *engine.State) error {
	return g.db.WithContext(ctx).Model(&TournamentRecord{}).
		Where("code = ?", s.Code).
		Updates(map[string]any{
			"status":           string(s.Status),
			"locked":           s.Locked,
			"round":            s.Round,
			"active_player_id": s.ActivePlayerID,
			"current_bid":      s.CurrentBid,
			"leading_team_id":  s.LeadingTeamID,
			"quota_bypass":     s.QuotaBypass,
			"settings_json":    marshalSettings(s.Settings),
		}).Error
}

func (g *Gorm) SavePlayer(ctx context.Context, code string, p *engine.Player) error {
	id, err := g.tournamentID(ctx, code)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Save(playerRecord(id, p)).Error
}

func (g *Gorm) SaveTeam(ctx context.Context, code string, t *engine.Team) error {
	id, err := g.tournamentID(ctx, code)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Save(teamRecord(id, t)).Error
}

func (g *Gorm) AppendBid(ctx context.Context, code, playerID string, b engine.Bid) error {
	id, err := g.tournamentID(ctx, code)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Create(&BidRecord{
		TournamentID: id,
		PlayerID:     playerID,
		TeamID:       b.TeamID,
		Amount:       b.Amount,
		At:           b.At,
	}).Error
}

// ResetAuction wipes derived state in one transaction: player statuses and
// sales, team spend, bid history, session progress.
func (g *Gorm) ResetAuction(ctx context.Context, code string) error {
	id, err := g.tournamentID(ctx, code)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&PlayerRecord{}).Where("tournament_id = ?", id).Updates(map[string]any{
			"status":          string(engine.PlayerAvailable),
			"sold_price":      0,
			"sold_to_team_id": "",
			"tx_type":         "",
			"withdraw_reason": "",
			"pended_seq":      0,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&TeamRecord{}).Where("tournament_id = ?", id).Updates(map[string]any{
			"spent":          0,
			"players_bought": 0,
			"overdraft":      false,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", id).Delete(&BidRecord{}).Error; err != nil {
			return err
		}
		return tx.Model(&TournamentRecord{}).Where("id = ?", id).Updates(map[string]any{
			"status":           string(engine.StatusNotStarted),
			"locked":           false,
			"round":            0,
			"active_player_id": "",
			"current_bid":      0,
			"leading_team_id":  "",
			"quota_bypass":     false,
		}).Error
	})
}

func (g *Gorm) SeatForLogin(ctx context.Context, tournamentCode, teamCode, seatCode string) (*engine.Seat, error) {
	id, err := g.tournamentID(ctx, tournamentCode)
	if err != nil {
		return nil, err
	}
	var team TeamRecord
	err = g.db.WithContext(ctx).Where("tournament_id = ? AND code = ?", id, teamCode).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var seat SeatRecord
	err = g.db.WithContext(ctx).Where("team_id = ? AND seat_code = ?", team.ID, seatCode).First(&seat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return seat.seat(), nil
}
