// Package model provides data models for algoflow.
package model

import (
	"time"
)

// Algorithm represents a user-authored flowchart and its metadata.
type Algorithm struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Public      bool      `json:"public"`
	Version     string    `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Graph is the serialized flowchart document of one algorithm.
// Document is nil until the graph is saved for the first time.
type Graph struct {
	ID          int64     `json:"id"`
	AlgorithmID int64     `json:"algorithm_id"`
	Document    *string   `json:"graph"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Node is one indexed cell of an algorithm's graph document.
// NodeID is only unique within the owning algorithm's document.
type Node struct {
	ID          int64     `json:"id"`
	AlgorithmID int64     `json:"algorithm_id"`
	NodeID      string    `json:"node_id"`
	NodeType    string    `json:"node_type"`
	Label       string    `json:"label"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NodeRecord is a node as described by a graph document, before it is stored.
type NodeRecord struct {
	NodeID   string
	NodeType string
	Label    string
}

// NodeMatch is a node found by keyword, with its owning algorithm's
// title and visibility.
type NodeMatch struct {
	Title  string `json:"title"`
	Public bool   `json:"public"`
	Node
}

// AlgorithmHits groups everything a thorough search found for one algorithm.
type AlgorithmHits struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Nodes       []Node `json:"nodes"`
}

// MatchMode selects how a keyword is matched against text.
type MatchMode int

const (
	// MatchSubstring matches the keyword anywhere in the text.
	MatchSubstring MatchMode = iota
	// MatchWholeWord matches the keyword only between word boundaries.
	MatchWholeWord
)

func (m MatchMode) String() string {
	if m == MatchWholeWord {
		return "whole-word"
	}
	return "substring"
}

// Scope restricts node search by the owning algorithm's visibility.
type Scope int

const (
	// ScopePublic only returns nodes of public algorithms.
	ScopePublic Scope = iota
	// ScopeAll returns nodes of every algorithm.
	ScopeAll
)

func (s Scope) String() string {
	if s == ScopeAll {
		return "all"
	}
	return "public"
}
