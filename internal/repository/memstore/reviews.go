package memstore

import (
	"context"
	"sort"

	"sciencehub/internal/model"
	"sciencehub/internal/repository"
)

func (s *Store) participant(userID string) model.Participant {
	if u, ok := s.users[userID]; ok && u.Role == model.RoleCompany {
		p := model.CompanyParticipant{UserID: userID}
		if c := s.companyByUser(userID); c != nil {
			p.CompanyName, p.LogoURL = c.CompanyName, c.LogoURL
		}
		return p
	}
	p := model.ResearcherParticipant{UserID: userID}
	if r := s.researcherByUser(userID); r != nil {
		p.FirstName, p.LastName, p.AvatarURL = r.FirstName, r.LastName, r.AvatarURL
	}
	return p
}

func (s *Store) reviewView(rv *model.Review) model.Review {
	out := *rv
	out.Reviewer = s.participant(rv.ReviewerID)
	out.Reviewee = s.participant(rv.RevieweeID)
	if a, ok := s.applications[rv.ApplicationID]; ok {
		if p, ok := s.projects[a.ProjectID]; ok {
			out.ProjectTitle = p.Title
		}
	}
	return out
}

func (s *Store) ListReviews(_ context.Context, filter model.ReviewFilter) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviews := []model.Review{}
	for _, rv := range s.reviews {
		if filter.RevieweeID != "" && rv.RevieweeID != filter.RevieweeID {
			continue
		}
		if filter.ApplicationID != "" && rv.ApplicationID != filter.ApplicationID {
			continue
		}
		reviews = append(reviews, s.reviewView(rv))
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (s *Store) GetReview(_ context.Context, id string) (*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rv, ok := s.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.reviewView(rv)
	return &out, nil
}

func (s *Store) ReviewExists(_ context.Context, applicationID, reviewerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findReview(applicationID, reviewerID) != nil, nil
}

func (s *Store) findReview(applicationID, reviewerID string) *model.Review {
	for _, rv := range s.reviews {
		if rv.ApplicationID == applicationID && rv.ReviewerID == reviewerID {
			return rv
		}
	}
	return nil
}

func (s *Store) CreateReview(_ context.Context, rv *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findReview(rv.ApplicationID, rv.ReviewerID) != nil {
		return repository.ErrConflict
	}
	rv.CreatedAt = s.now()
	rv.UpdatedAt = rv.CreatedAt
	cp := *rv
	cp.Reviewer, cp.Reviewee, cp.ProjectTitle = nil, nil, ""
	s.reviews[rv.ID] = &cp
	return nil
}

func (s *Store) UpdateReview(_ context.Context, rv *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reviews[rv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Rating = rv.Rating
	existing.Comment = rv.Comment
	existing.UpdatedAt = s.now()
	rv.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *Store) DeleteReview(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.reviews, id)
	return nil
}
