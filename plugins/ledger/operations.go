package ledger

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Tool names advertised to the model
const (
	OpCreateToken   = "create_icrc2_token"
	OpTokenMetadata = "get_token_metadata"
	OpTokenInfo     = "get_token_info_and_standards"
)

// CreateTokenInput is the argument schema of create_icrc2_token
type CreateTokenInput struct {
	Name        string `json:"name" jsonschema_description:"The full name of the token (e.g., 'My Test Token')."`
	Symbol      string `json:"symbol" jsonschema_description:"The ticker symbol for the token (e.g., 'MTT')."`
	LogoURL     string `json:"logo_url" jsonschema_description:"A URL pointing to the token's logo image."`
	Description string `json:"description" jsonschema_description:"A brief description of the token."`
	Website     string `json:"website,omitempty" jsonschema_description:"Optional: The token's official website URL."`
	Telegram    string `json:"telegram,omitempty" jsonschema_description:"Optional: The token's official Telegram link."`
	Twitter     string `json:"twitter,omitempty" jsonschema_description:"Optional: The token's official Twitter handle or link."`
}

// TokenIDInput is the argument schema of the two lookup operations
type TokenIDInput struct {
	TokenID string `json:"token_id" jsonschema_description:"The principal ID of the token canister."`
}

// Logo is the ImageUrl variant of the canister's logo type
type Logo struct {
	ImageURL string `json:"ImageUrl"`
}

// CreateTokenRequest is the createIcrc2Token body. Optional fields are
// zero-or-one element lists.
type CreateTokenRequest struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Logo        Logo     `json:"logo"`
	Description string   `json:"description"`
	Website     []string `json:"website"`
	Telegram    []string `json:"telegram"`
	Twitter     []string `json:"twitter"`
}

// TokenIDRequest is the getTokenMetadata / getTokenInfo body
type TokenIDRequest struct {
	TokenID string `json:"tokenId"`
}

// Operation binds a catalog entry to its backend path and payload shape
type Operation struct {
	Name        string
	Path        string
	Description string

	payload func(args map[string]interface{}) (interface{}, error)
	define  func(gk *genkit.Genkit, op Operation, c *Client) ai.Tool
}

// Operations is the fixed catalog, in the order it is advertised
var Operations = []Operation{
	{
		Name:        OpCreateToken,
		Path:        "createIcrc2Token",
		Description: "Creates a new ICRC2 compliant token with specified metadata. Requires details like name, symbol, logo URL, and description.",
		payload:     createTokenPayload,
		define:      defineTool[*CreateTokenInput],
	},
	{
		Name:        OpTokenMetadata,
		Path:        "getTokenMetadata",
		Description: "Fetches the detailed metadata for a given ICRC2 token using its canister principal ID.",
		payload:     tokenIDPayload,
		define:      defineTool[*TokenIDInput],
	},
	{
		Name:        OpTokenInfo,
		Path:        "getTokenInfo",
		Description: "Retrieves general information and supported standards (like ICRC2) for a token using its canister principal ID.",
		payload:     tokenIDPayload,
		define:      defineTool[*TokenIDInput],
	},
}

// Lookup finds an operation by tool name
func Lookup(name string) (Operation, bool) {
	for _, op := range Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

// Payload builds the JSON body for args
func (op Operation) Payload(args map[string]interface{}) (interface{}, error) {
	return op.payload(args)
}

func createTokenPayload(args map[string]interface{}) (interface{}, error) {
	req := &CreateTokenRequest{}
	var err error
	if req.Name, err = requiredString(args, "name"); err != nil {
		return nil, err
	}
	if req.Symbol, err = requiredString(args, "symbol"); err != nil {
		return nil, err
	}
	logo, err := requiredString(args, "logo_url")
	if err != nil {
		return nil, err
	}
	req.Logo = Logo{ImageURL: logo}
	if req.Description, err = requiredString(args, "description"); err != nil {
		return nil, err
	}
	req.Website = optionalList(args, "website")
	req.Telegram = optionalList(args, "telegram")
	req.Twitter = optionalList(args, "twitter")
	return req, nil
}

func tokenIDPayload(args map[string]interface{}) (interface{}, error) {
	id, err := requiredString(args, "token_id")
	if err != nil {
		return nil, err
	}
	return &TokenIDRequest{TokenID: id}, nil
}

// requiredString accepts any present value; the model is trusted to send
// strings but non-strings are formatted rather than rejected.
func requiredString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument '%s'", key)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func optionalList(args map[string]interface{}, key string) []string {
	v, ok := args[key]
	if !ok || v == nil {
		return []string{}
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if s == "" {
		return []string{}
	}
	return []string{s}
}
