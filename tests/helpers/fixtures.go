package helpers

import (
	"encoding/json"
	"fmt"
)

// TestUser represents a test user fixture
type TestUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TestProject represents a test project fixture
type TestProject struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
}

// Default test fixtures
var (
	DefaultTestUser = TestUser{
		Email:    "test@example.com",
		Password: "test-password-123",
	}

	DefaultTestProject = TestProject{
		Name:        "Test Portfolio",
		Description: "A test project for integration testing",
		Prompt:      "Build a personal portfolio with a hero section and a contact form",
	}
)

// ToJSON converts a fixture to JSON string
func ToJSON(fixture interface{}) string {
	data, _ := json.Marshal(fixture)
	return string(data)
}

// FromJSON parses JSON string to map
func FromJSON(jsonStr string) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal([]byte(jsonStr), &result)
	return result
}

// CreateTestLoginRequest creates a login request payload
func CreateTestLoginRequest(email, password string) map[string]interface{} {
	return map[string]interface{}{
		"email":    email,
		"password": password,
	}
}

// CreateTestProjectRequest creates a project creation request payload
func CreateTestProjectRequest(name, description, prompt string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"prompt":      prompt,
	}
}

// CreateTestGenerateRequest creates a generation request payload
func CreateTestGenerateRequest(prompt, projectID string) map[string]interface{} {
	req := map[string]interface{}{
		"prompt": prompt,
	}
	if projectID != "" {
		req["project_id"] = projectID
	}
	return req
}

// MockCompletion builds a model completion carrying the given files,
// wrapped in the markdown fence models tend to produce
func MockCompletion(message string, files map[string]string) string {
	entries := make([]map[string]string, 0, len(files))
	for name, content := range files {
		entries = append(entries, map[string]string{"name": name, "content": content})
	}
	body, _ := json.Marshal(map[string]interface{}{
		"message": message,
		"files":   entries,
	})
	return fmt.Sprintf("```json\n%s\n```", body)
}

// MockGatewayResponse wraps completion text in the chat-completions
// response shape the AI gateway returns
func MockGatewayResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}
