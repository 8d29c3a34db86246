package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/evcraddock/estate-crm/internal/model"
)

// LoadRewards fetches the reward catalog, the current user's standings and
// their referral earnings. Each collection degrades to empty on failure.
func (s *Store) LoadRewards(ctx context.Context) {
	userID := s.CurrentUserID()
	if userID == "" {
		return
	}

	var (
		rewards     []model.Reward
		userRewards []model.UserReward
		referrals   []model.ReferralEarning
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		if rewards, err = s.remote.Rewards.GetAll(ctx); err != nil {
			s.logger.Warn("loading rewards", "error", err)
			rewards = []model.Reward{}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if userRewards, err = s.remote.Rewards.GetUserRewards(ctx, userID); err != nil {
			s.logger.Warn("loading user rewards", "user_id", userID, "error", err)
			userRewards = []model.UserReward{}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if referrals, err = s.remote.Referrals.GetForReferrer(ctx, userID); err != nil {
			s.logger.Warn("loading referral earnings", "user_id", userID, "error", err)
			referrals = []model.ReferralEarning{}
		}
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewards = rewards
	s.userRewards = userRewards
	s.referrals = referrals
}

// RewardStandings pairs every catalog reward with the current user's status
// and the progress a points balance represents toward it.
func (s *Store) RewardStandings(points int) []model.RewardStanding {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RewardStanding, 0, len(s.rewards))
	for _, rw := range s.rewards {
		status := model.UserRewardLocked
		if ur, ok := s.userReward(rw.ID); ok {
			status = ur.Status
		}
		out = append(out, model.RewardStanding{
			Reward:   rw,
			Status:   status,
			Progress: model.RewardProgress(points, rw.PointsRequired),
		})
	}
	return out
}

// UserRewards returns the current user's cached reward standings.
func (s *Store) UserRewards() []model.UserReward {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.userRewards)
}

// RefreshRewardProgress recomputes progress for every catalog reward from a
// points balance. A reward whose threshold is met becomes available; a status
// already further along is kept.
func (s *Store) RefreshRewardProgress(ctx context.Context, points int) ([]model.UserReward, error) {
	userID, err := s.actor()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	catalog := slices.Clone(s.rewards)
	s.mu.RUnlock()

	var changed []model.UserReward
	for _, rw := range catalog {
		progress := model.RewardProgress(points, rw.PointsRequired)
		target := model.UserRewardLocked
		if rw.PointsRequired > 0 && progress >= 100 {
			target = model.UserRewardAvailable
		}

		current, had := s.cachedUserReward(rw.ID)
		next := current
		if !had {
			next = model.UserReward{UserID: userID, RewardID: rw.ID, Status: model.UserRewardLocked}
		}
		if target.Rank() > next.Status.Rank() {
			next.Status = target
		}
		next.Progress = progress
		if next.Status.Rank() >= model.UserRewardEarned.Rank() {
			next.Progress = 100
		}
		if had && next.Status == current.Status && next.Progress == current.Progress {
			continue
		}

		saved, err := s.remote.Rewards.UpsertUserReward(ctx, next)
		if err != nil {
			return changed, fmt.Errorf("updating reward %s: %w", rw.ID, err)
		}
		s.putUserReward(saved)
		changed = append(changed, saved)
	}
	return changed, nil
}

// AdvanceUserReward moves one of the current user's rewards to status.
// Moving backwards is rejected.
func (s *Store) AdvanceUserReward(ctx context.Context, rewardID string, status model.UserRewardStatus) (model.UserReward, error) {
	userID, err := s.actor()
	if err != nil {
		return model.UserReward{}, err
	}
	if status.Rank() < 0 {
		return model.UserReward{}, fmt.Errorf("%w: unknown reward status %q", ErrValidation, status)
	}

	next, had := s.cachedUserReward(rewardID)
	if !had {
		next = model.UserReward{UserID: userID, RewardID: rewardID, Status: model.UserRewardLocked}
	}
	if status.Rank() < next.Status.Rank() {
		return model.UserReward{}, fmt.Errorf("reward %s from %s to %s: %w", rewardID, next.Status, status, ErrRewardRegression)
	}

	now := s.now().UTC()
	next.Status = status
	if status.Rank() >= model.UserRewardEarned.Rank() && next.EarnedAt == nil {
		next.EarnedAt = &now
		next.Progress = 100
	}
	if status == model.UserRewardFulfilled && next.FulfilledAt == nil {
		next.FulfilledAt = &now
	}

	saved, err := s.remote.Rewards.UpsertUserReward(ctx, next)
	if err != nil {
		return model.UserReward{}, fmt.Errorf("advancing reward %s: %w", rewardID, err)
	}
	s.putUserReward(saved)
	return saved, nil
}

// AddReferralEarning records an earning for the current user as referrer.
func (s *Store) AddReferralEarning(ctx context.Context, e model.ReferralEarning) (model.ReferralEarning, error) {
	userID, err := s.actor()
	if err != nil {
		return model.ReferralEarning{}, err
	}
	if e.ReferrerID == "" {
		e.ReferrerID = userID
	}

	created, err := s.remote.Referrals.Create(ctx, e)
	if err != nil {
		return model.ReferralEarning{}, fmt.Errorf("adding referral earning: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.referrals = upsert(s.referrals, created, referralKey)
	return created, nil
}

// ReferralEarnings returns the cached earnings.
func (s *Store) ReferralEarnings() []model.ReferralEarning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.referrals)
}

// ReferralSummary aggregates the cached earnings credited to referrerID.
func (s *Store) ReferralSummary(referrerID string) model.ReferralSummary {
	s.mu.RLock()
	earnings := filter(s.referrals, func(e model.ReferralEarning) bool { return e.ReferrerID == referrerID })
	s.mu.RUnlock()
	return SummarizeReferrals(earnings, s.now())
}

// SummarizeReferrals totals earnings overall, for the calendar month
// containing now, by earning type, and per referred agent. Agents are ordered
// by total, highest first.
func SummarizeReferrals(earnings []model.ReferralEarning, now time.Time) model.ReferralSummary {
	sum := model.ReferralSummary{Agents: []model.AgentEarnings{}}
	year, month, _ := now.Date()
	loc := now.Location()

	byAgent := map[string]*model.AgentEarnings{}
	for _, e := range earnings {
		sum.LifetimeEarnings += e.EarningAmount

		y, m, _ := e.CreatedAt.In(loc).Date()
		if y == year && m == month {
			sum.ThisMonthEarnings += e.EarningAmount
		}

		switch e.EarningType {
		case model.EarningSignupFee:
			sum.SignupFees += e.EarningAmount
		case model.EarningCommissionShare:
			sum.CommissionShares += e.EarningAmount
		}

		agent, ok := byAgent[e.ReferredAgentID]
		if !ok {
			agent = &model.AgentEarnings{AgentID: e.ReferredAgentID}
			byAgent[e.ReferredAgentID] = agent
		}
		agent.Total += e.EarningAmount
		agent.Earnings++
	}

	for _, a := range byAgent {
		sum.Agents = append(sum.Agents, *a)
	}
	sort.Slice(sum.Agents, func(i, j int) bool {
		if sum.Agents[i].Total != sum.Agents[j].Total {
			return sum.Agents[i].Total > sum.Agents[j].Total
		}
		return sum.Agents[i].AgentID < sum.Agents[j].AgentID
	})
	sum.ReferredAgents = len(sum.Agents)
	return sum
}

// userReward looks up a standing by reward id. Callers hold s.mu.
func (s *Store) userReward(rewardID string) (model.UserReward, bool) {
	return find(s.userRewards, rewardID, func(ur model.UserReward) string { return ur.RewardID })
}

func (s *Store) cachedUserReward(rewardID string) (model.UserReward, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userReward(rewardID)
}

func (s *Store) putUserReward(ur model.UserReward) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userRewards = upsert(s.userRewards, ur, func(v model.UserReward) string { return v.RewardID })
}
