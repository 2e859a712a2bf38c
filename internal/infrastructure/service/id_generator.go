// Package service contains concrete implementations of the small interfaces
// the application layer depends on: ID generation and outbound notification
// delivery.
package service

import "github.com/google/uuid"

// UUIDGenerator implements command.IDGenerator with random UUIDs.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// GenerateID returns a new UUID in string form.
func (g *UUIDGenerator) GenerateID() string {
	return uuid.New().String()
}
