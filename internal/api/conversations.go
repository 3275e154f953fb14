package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// Upload limits mirror the ones the service enforces
const (
	MaxUploadSize   = 10 * 1024 * 1024
	allowedFileType = "application/pdf"
)

// ErrFileTooLarge is returned for uploads over MaxUploadSize
var ErrFileTooLarge = errors.New("file exceeds the 10 MiB upload limit")

// ErrUnsupportedFileType is returned for non-PDF uploads
var ErrUnsupportedFileType = errors.New("only PDF files can be uploaded")

// FileInfo describes the uploaded document backing a conversation
type FileInfo struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Format    string `json:"format"`
	Pages     int    `json:"pages"`
	Bytes     int64  `json:"bytes"`
}

// ConversationInfo is one chat-over-document conversation
type ConversationInfo struct {
	ID        string   `json:"id"`
	CreatedAt int64    `json:"created_at"`
	Name      string   `json:"name"`
	File      FileInfo `json:"file"`
}

// ListConversations returns the caller's conversations
func (c *Client) ListConversations(ctx context.Context) ([]ConversationInfo, error) {
	var out []ConversationInfo
	if _, err := c.getJSON(ctx, "/v1/conversations", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversation returns one conversation with its document metadata
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*ConversationInfo, error) {
	var out ConversationInfo
	if _, err := c.getJSON(ctx, "/v1/conversations/"+conversationID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation removes a conversation and its uploaded document
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/conversations/"+conversationID, nil, "", nil)
	return err
}

// CreateConversation uploads a PDF and opens a conversation over it.
// Validation happens client-side before any bytes leave the machine.
func (c *Client) CreateConversation(ctx context.Context, filePath string) (*ConversationInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if http.DetectContentType(data) != allowedFileType {
		return nil, ErrUnsupportedFileType
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	var out ConversationInfo
	if _, err := c.do(ctx, http.MethodPost, "/v1/conversations", buf.Bytes(), writer.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
