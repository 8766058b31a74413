package handler

import (
	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// --- Request → domain ---

func toProfile(r profileRequest) domain.Profile {
	return domain.Profile{
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Company:           r.Company,
		Phone:             r.Phone,
		JobTitle:          r.JobTitle,
		Industry:          r.Industry,
		CompanySize:       r.CompanySize,
		Website:           r.Website,
		Address:           r.Address,
		BusinessGoals:     r.BusinessGoals,
		CurrentChallenges: r.CurrentChallenges,
		PreferredBudget:   r.PreferredBudget,
		ProjectTimeline:   r.ProjectTimeline,
		ReferralSource:    r.ReferralSource,
	}
}

func toPreferences(r preferencesRequest) domain.Preferences {
	return domain.Preferences{
		EmailNotifications: r.EmailNotifications,
		MarketingConsent:   r.MarketingConsent,
		Language:           r.Language,
		Timezone:           r.Timezone,
		Theme:              r.Theme,
	}
}

// --- Domain → HTTP response ---

func toAccountResponse(a *domain.Account) accountResponse {
	out := accountResponse{
		ID:              a.ID,
		Email:           a.Email,
		Role:            string(a.Role),
		Active:          a.Active,
		Verified:        a.Verified,
		ProfileComplete: a.ProfileComplete,
		Profile: profileRequest{
			FirstName:         a.Profile.FirstName,
			LastName:          a.Profile.LastName,
			Company:           a.Profile.Company,
			Phone:             a.Profile.Phone,
			JobTitle:          a.Profile.JobTitle,
			Industry:          a.Profile.Industry,
			CompanySize:       a.Profile.CompanySize,
			Website:           a.Profile.Website,
			Address:           a.Profile.Address,
			BusinessGoals:     a.Profile.BusinessGoals,
			CurrentChallenges: a.Profile.CurrentChallenges,
			PreferredBudget:   a.Profile.PreferredBudget,
			ProjectTimeline:   a.Profile.ProjectTimeline,
			ReferralSource:    a.Profile.ReferralSource,
		},
		Preferences: preferencesRequest{
			EmailNotifications: a.Preferences.EmailNotifications,
			MarketingConsent:   a.Preferences.MarketingConsent,
			Language:           a.Preferences.Language,
			Timezone:           a.Preferences.Timezone,
			Theme:              a.Preferences.Theme,
		},
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
	if a.Avatar != nil {
		out.Avatar = &avatarRequest{URL: a.Avatar.URL, PublicID: a.Avatar.PublicID}
	}
	return out
}

func toUserListResponse(r *ports.ListUsersResult) userListResponse {
	items := make([]accountResponse, len(r.Items))
	for i, a := range r.Items {
		items[i] = toAccountResponse(a)
	}
	return userListResponse{
		Items:      items,
		Total:      r.Total,
		Page:       r.Page,
		Limit:      r.Limit,
		TotalPages: r.TotalPages,
	}
}

func toActivityResponses(entries []*domain.ActivityLogEntry) []activityResponse {
	out := make([]activityResponse, len(entries))
	for i, e := range entries {
		out[i] = activityResponse{
			ID:         e.ID,
			ActorID:    e.ActorID,
			ActorRole:  string(e.ActorRole),
			Action:     e.Action,
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Detail:     e.Detail,
			IP:         e.Origin.IP,
			UserAgent:  e.Origin.UserAgent,
			RequestID:  e.Origin.RequestID,
			CreatedAt:  e.CreatedAt.UTC(),
		}
	}
	return out
}

func toPaymentResponses(records []*domain.PaymentRecord) []paymentResponse {
	out := make([]paymentResponse, len(records))
	for i, p := range records {
		out[i] = paymentResponse{
			ID:              p.ID,
			PaymentIntentID: p.GatewayIntentID,
			Amount:          p.Amount,
			Currency:        p.Currency,
			Status:          string(p.Status),
			Description:     p.Description,
			Metadata:        p.Metadata,
			PaymentMethod:   p.PaymentMethod,
			ReceiptURL:      p.ReceiptURL,
			FailureReason:   p.FailureReason,
			CreatedAt:       p.CreatedAt.UTC(),
			UpdatedAt:       p.UpdatedAt.UTC(),
		}
	}
	return out
}

func toSubscriptionResponse(s *domain.SubscriptionRecord) subscriptionResponse {
	return subscriptionResponse{
		ID:                    s.ID,
		GatewaySubscriptionID: s.GatewaySubscriptionID,
		PriceID:               s.GatewayPriceID,
		PackageLabel:          s.PackageLabel,
		Status:                string(s.Status),
		Amount:                s.Amount,
		Currency:              s.Currency,
		Interval:              s.Interval,
		IntervalCount:         s.IntervalCount,
		CurrentPeriodStart:    s.CurrentPeriodStart,
		CurrentPeriodEnd:      s.CurrentPeriodEnd,
		CancelAtPeriodEnd:     s.CancelAtPeriodEnd,
		CanceledAt:            s.CanceledAt,
		CreatedAt:             s.CreatedAt.UTC(),
		UpdatedAt:             s.UpdatedAt.UTC(),
	}
}

func toSubscriptionResponses(records []*domain.SubscriptionRecord) []subscriptionResponse {
	out := make([]subscriptionResponse, len(records))
	for i, s := range records {
		out[i] = toSubscriptionResponse(s)
	}
	return out
}
