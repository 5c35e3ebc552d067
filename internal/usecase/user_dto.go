package usecase

import "badgeshop/internal/domain/model"

type UserDTO struct {
	ID           int64                 `json:"id"`
	Email        string                `json:"email"`
	Name         string                `json:"name"`
	Role         string                `json:"role"`
	TokenVersion int                   `json:"token_version"`
	IsActive     bool                  `json:"is_active"`
	Influencer   *InfluencerProfileDTO `json:"influencer,omitempty"`
}

// インフルエンサーだけ返す
type InfluencerProfileDTO struct {
	Handle          string `json:"handle"`
	TotalEarnings   int64  `json:"total_earnings"`
	PendingEarnings int64  `json:"pending_earnings"`
	WithdrawnAmount int64  `json:"withdrawn_amount"`
	MinWithdrawal   int64  `json:"min_withdrawal"`
}

func toUserDTO(u *model.User) UserDTO {
	dto := UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
	}
	if u.Role != model.RoleInfluencer {
		return dto
	}
	inf := u.Influencer
	dto.Influencer = &InfluencerProfileDTO{
		Handle:          inf.Handle,
		TotalEarnings:   inf.TotalEarnings,
		PendingEarnings: inf.PendingEarnings,
		WithdrawnAmount: inf.WithdrawnAmount,
		MinWithdrawal:   inf.MinWithdrawal,
	}
	return dto
}
