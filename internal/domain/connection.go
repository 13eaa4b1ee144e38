package domain

// ConnID identifies one live client connection. It is minted by the
// transport adapter and never persisted.
type ConnID string
