package internal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/classifieds"
)

type commentManager struct {
	repo    *PostgresRepository
	metrics *Metrics
}

func NewCommentManager(repo *PostgresRepository, metrics *Metrics) classifieds.CommentManager {
	return &commentManager{repo: repo, metrics: metrics}
}

func checkCommentContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return classifieds.NewValidationError("content", "comment content is required")
	}
	return nil
}

// CreateComment adds a comment to a listing. A reply's parent must belong
// to the same listing.
func (m *commentManager) CreateComment(ctx context.Context, actor classifieds.Actor, listingID uuid.UUID, content string, parentID *uuid.UUID) (comment *classifieds.Comment, err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("create_comment", start, err) }()

	if err := checkCommentContent(content); err != nil {
		return nil, err
	}

	now := m.repo.now()
	c := &classifieds.Comment{
		ID:        m.repo.newID(),
		ListingID: listingID,
		AuthorID:  actor.UserID,
		ParentID:  parentID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		exists, err := m.repo.listingExists(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if !exists {
			return classifieds.NewListingNotFoundError(listingID)
		}
		if parentID != nil {
			parent, err := m.repo.findCommentByID(ctx, tx, *parentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return classifieds.NewCommentNotFoundError(*parentID)
			}
			if parent.ListingID != listingID {
				return classifieds.NewValidationError("parent_id", "parent comment belongs to another listing")
			}
		}
		return m.repo.insertComment(ctx, tx, c)
	})
	if err != nil {
		return nil, storageFailure("create comment", err)
	}
	return c, nil
}

func (m *commentManager) UpdateComment(ctx context.Context, actor classifieds.Actor, commentID uuid.UUID, content string) (comment *classifieds.Comment, err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("update_comment", start, err) }()

	if err := checkCommentContent(content); err != nil {
		return nil, err
	}

	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		c, err := m.repo.findCommentByID(ctx, tx, commentID)
		if err != nil {
			return err
		}
		if c == nil {
			return classifieds.NewCommentNotFoundError(commentID)
		}
		if !actor.CanModify(c.AuthorID) {
			return classifieds.NewForbiddenError("only the author or a moderator may modify this comment")
		}
		c.Content = content
		c.UpdatedAt = m.repo.now()
		if err := m.repo.updateCommentContent(ctx, tx, c); err != nil {
			return err
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, storageFailure("update comment", err)
	}
	return comment, nil
}

// DeleteComment removes a comment and its replies.
func (m *commentManager) DeleteComment(ctx context.Context, actor classifieds.Actor, commentID uuid.UUID) (err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("delete_comment", start, err) }()

	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		c, err := m.repo.findCommentByID(ctx, tx, commentID)
		if err != nil {
			return err
		}
		if c == nil {
			return classifieds.NewCommentNotFoundError(commentID)
		}
		if !actor.CanModify(c.AuthorID) {
			return classifieds.NewForbiddenError("only the author or a moderator may delete this comment")
		}
		return m.repo.deleteComment(ctx, tx, commentID)
	})
	return storageFailure("delete comment", err)
}

// ListComments returns the top-level comments of a listing, newest first,
// each with its replies oldest first.
func (m *commentManager) ListComments(ctx context.Context, listingID uuid.UUID) ([]*classifieds.Comment, error) {
	exists, err := m.repo.listingExists(ctx, m.repo.pool, listingID)
	if err != nil {
		return nil, storageFailure("list comments", err)
	}
	if !exists {
		return nil, classifieds.NewListingNotFoundError(listingID)
	}

	comments, err := m.repo.listComments(ctx, m.repo.pool, listingID)
	if err != nil {
		return nil, storageFailure("list comments", err)
	}
	return threadComments(comments), nil
}

// threadComments nests replies under their parents. comments must be in
// ascending creation order.
func threadComments(comments []*classifieds.Comment) []*classifieds.Comment {
	byID := make(map[uuid.UUID]*classifieds.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	top := make([]*classifieds.Comment, 0)
	for _, c := range comments {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		top = append(top, c)
	}

	for i, j := 0, len(top)-1; i < j; i, j = i+1, j-1 {
		top[i], top[j] = top[j], top[i]
	}
	return top
}
