package store

import (
	"time"

	"inkwell/api/internal/block"
)

type User struct {
	ID                    string
	Name                  string
	Email                 string
	PasswordHash          string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Page struct {
	ID          string
	WorkspaceID string
	Title       string
	Icon        string
	Blocks      []block.Block
	ParentID    *string
	SortOrder   int
	IsPublic    bool
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PageSummary is a page row without its block content, for sidebar trees.
type PageSummary struct {
	ID        string
	Title     string
	Icon      string
	ParentID  *string
	SortOrder int
	UpdatedAt time.Time
}

// PageTreeNode is a page summary with its children attached.
type PageTreeNode struct {
	PageSummary
	Children []PageTreeNode
}

// BuildPageTree arranges flat summaries into a forest ordered by sort_order.
// Rows referencing a missing parent surface as roots rather than vanishing.
func BuildPageTree(rows []PageSummary) []PageTreeNode {
	byID := make(map[string]bool, len(rows))
	for _, r := range rows {
		byID[r.ID] = true
	}

	children := make(map[string][]PageSummary)
	var roots []PageSummary
	for _, r := range rows {
		if r.ParentID == nil || !byID[*r.ParentID] {
			roots = append(roots, r)
			continue
		}
		children[*r.ParentID] = append(children[*r.ParentID], r)
	}

	var build func(rows []PageSummary) []PageTreeNode
	build = func(rows []PageSummary) []PageTreeNode {
		nodes := make([]PageTreeNode, 0, len(rows))
		for _, r := range rows {
			nodes = append(nodes, PageTreeNode{
				PageSummary: r,
				Children:    build(children[r.ID]),
			})
		}
		return nodes
	}
	return build(roots)
}
