package supabase

import (
	"fmt"
	"strings"

	"github.com/supabase-community/supabase-go"
)

// NewUserClient returns a client whose PostgREST calls run as the owner of accessToken,
// so row level security applies.
func NewUserClient(supabaseURL, anonKey, accessToken string) (*supabase.Client, error) {
	client, err := supabase.NewClient(strings.TrimRight(supabaseURL, "/"), anonKey, &supabase.ClientOptions{
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return client, nil
}
