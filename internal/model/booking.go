package model

import (
	"strings"
	"time"
)

// Meeting is a persisted booking request. Field names follow the document
// shape the admin views were built against.
type Meeting struct {
	ID                    string    `json:"id"`
	IDNumber              string    `json:"IDNumber"`
	Name                  string    `json:"Name"`
	Request               string    `json:"Request"`
	AdditionalInformation string    `json:"AdditionalInformation"`
	Date                  string    `json:"Date"` // YYYY-MM-DD
	Time                  string    `json:"Time"` // HH:MM, 24h
	CreatedAt             time.Time `json:"createdAt"`
	UserEmail             string    `json:"userEmail"`
	UserID                string    `json:"userId"`
}

// Topic is the subject a student needs help with.
type Topic string

const (
	TopicUnselected    Topic = ""
	TopicVerbs         Topic = "verbs"
	TopicWriting       Topic = "writing"
	TopicGrammar       Topic = "grammar"
	TopicVocabulary    Topic = "vocabulary"
	TopicPronunciation Topic = "pronunciation"
)

// Topics lists the selectable topics in display order.
var Topics = []Topic{TopicVerbs, TopicWriting, TopicGrammar, TopicVocabulary, TopicPronunciation}

// Valid reports whether t is one of the selectable topics.
func (t Topic) Valid() bool {
	for _, v := range Topics {
		if t == v {
			return true
		}
	}
	return false
}

// Title returns the display label, e.g. "Grammar".
func (t Topic) Title() string {
	if t == TopicUnselected {
		return "--Please select an option--"
	}
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}
