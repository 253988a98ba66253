package services

import (
	"context"
	"strings"

	"social-hub/models"
)

type ReportInput struct {
	ReportedUserID *uint   `json:"reportedUserId"`
	ReportedPostID *uint   `json:"reportedPostId"`
	Reason         string  `json:"reason"`
	Description    *string `json:"description"`
}

// CreateReport 举报用户或帖子，二者必须且只能选一个
func (s *Store) CreateReport(ctx context.Context, reporterID uint, in ReportInput) (*models.Report, error) {
	if (in.ReportedUserID == nil) == (in.ReportedPostID == nil) {
		return nil, invalidf("report exactly one of reportedUserId or reportedPostId")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" || len(reason) > 100 {
		return nil, invalidf("reason must be 1-100 characters")
	}

	if in.ReportedUserID != nil {
		if *in.ReportedUserID == reporterID {
			return nil, invalidf("cannot report yourself")
		}
		if _, err := s.GetUser(ctx, *in.ReportedUserID); err != nil {
			return nil, err
		}
	} else if _, err := s.GetPost(ctx, *in.ReportedPostID); err != nil {
		return nil, err
	}

	report := &models.Report{
		ReporterID:     reporterID,
		ReportedUserID: in.ReportedUserID,
		ReportedPostID: in.ReportedPostID,
		Reason:         reason,
		Description:    trimmed(in.Description),
		Status:         models.ReportStatusPending,
	}
	if err := s.conn(ctx).Create(report).Error; err != nil {
		return nil, persistence(err)
	}
	return report, nil
}
