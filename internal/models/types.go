package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// Message is one WhatsApp message exchanged between a customer and a bot.
type Message struct {
	UID      string    `json:"uid"`
	Client   string    `json:"client"`
	Role     Role      `json:"role"`
	Text     string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
	MediaURL string    `json:"media_url,omitempty"`
}

func (m Message) FromCustomer() bool {
	return m.Role == RoleUser
}

func (m *Message) UnmarshalJSON(data []byte) error {
	type plain Message
	aux := struct {
		*plain
		SentAt Timestamp `json:"sent_at"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.SentAt = aux.SentAt.Time
	return nil
}

// Client is the customer side of a conversation with one bot.
type Client struct {
	UID           string    `json:"uid"`
	Bot           string    `json:"bot"`
	PhoneNumber   string    `json:"phone_number"`
	Name          string    `json:"name"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
}

func (c *Client) UnmarshalJSON(data []byte) error {
	type plain Client
	aux := struct {
		*plain
		LastMessageAt Timestamp `json:"last_message_at"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.LastMessageAt = aux.LastMessageAt.Time
	return nil
}

type Bot struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Restaurant  string `json:"restaurant"`
}

type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)
