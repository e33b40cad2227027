package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Service holds the Gemini client and the read-only database connection
// the model is allowed to query.
type Service struct {
	Client *genai.Client
	DB     *sql.DB
}

// NewService initializes the Gemini client.
func NewService(apiKey string, dbReadOnly *sql.DB) (*Service, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Service{Client: client, DB: dbReadOnly}, nil
}

// GenerateResponse answers a staff question about lab stock. The model
// can call a read-only SQL tool to ground its answer in live data.
func (s *Service) GenerateResponse(ctx context.Context, userMessage string, userRole string) (string, error) {
	model := s.Client.GenerativeModel("gemini-1.5-flash")

	// 1. Define the read-only SQL tool
	sqlTool := &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "run_readonly_sql",
				Description: "Executes a READ-ONLY SQL query (SELECT only) to answer questions.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "The MySQL SELECT query to execute.",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
	model.Tools = []*genai.Tool{sqlTool}

	// 2. System instructions with the live schema
	schemaContext := s.getSchemaDefinition()
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(`
			You are the LabStock Stock Advisor. Role of the person asking: %s.
			Access: MySQL database (run_readonly_sql).
			Schema: %s
			Rules: SELECT only. Be concise. Answer questions about stock levels,
			overdue loans, damaged equipment, and borrowing patterns.
		`, userRole, schemaContext))},
	}

	// 3. Execute the chat
	cs := model.StartChat()
	res, err := cs.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", fmt.Errorf("error sending message: %w", err)
	}

	// Loop for function calls
	for {
		if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
			return "No response.", nil
		}
		part := res.Candidates[0].Content.Parts[0]

		funcCall, ok := part.(genai.FunctionCall)
		if !ok {
			return fmt.Sprintf("%v", part), nil
		}

		if funcCall.Name != "run_readonly_sql" {
			return "", fmt.Errorf("unknown function: %s", funcCall.Name)
		}

		query, ok := funcCall.Args["query"].(string)
		if !ok {
			return "", fmt.Errorf("invalid query argument")
		}
		log.Printf("Stock advisor running SQL: %s", query)

		sqlResult, sqlErr := s.runReadOnlyQuery(query)
		if sqlErr != nil {
			sqlResult = fmt.Sprintf("SQL Error: %v", sqlErr)
		}

		res, err = cs.SendMessage(ctx, genai.FunctionResponse{
			Name:     "run_readonly_sql",
			Response: map[string]interface{}{"result": sqlResult},
		})
		if err != nil {
			return "", fmt.Errorf("tool response error: %w", err)
		}
	}
}

// runReadOnlyQuery executes a SELECT and marshals the rows to JSON for
// the model. Anything that smells like a write is refused outright.
func (s *Service) runReadOnlyQuery(query string) (string, error) {
	normalized := strings.ToUpper(query)
	if strings.Contains(normalized, "UPDATE") || strings.Contains(normalized, "DELETE") || strings.Contains(normalized, "DROP") || strings.Contains(normalized, "INSERT") {
		return "", fmt.Errorf("security violation: modify operations are not allowed")
	}
	rows, err := s.DB.Query(query)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	columns, _ := rows.Columns()
	count := len(columns)
	tableData := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, count)
		valuePtrs := make([]interface{}, count)
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		rows.Scan(valuePtrs...)
		entry := make(map[string]interface{})
		for i, col := range columns {
			var v interface{}
			val := values[i]
			b, ok := val.([]byte)
			if ok {
				v = string(b)
			} else {
				v = val
			}
			entry[col] = v
		}
		tableData = append(tableData, entry)
	}
	jsonData, err := json.Marshal(tableData)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (s *Service) getSchemaDefinition() string {
	return `
	- users (id, role [admin, assistant], status [pending, active, rejected], email, full_name)
	- inventory (id, name, quantity, remaining_quantity, status [available, borrowed, maintenance, damaged, out_of_stock], condition [good, fair, poor], warranty_expiry)
	- borrowers (id, name, email, phone)
	- transactions (id, borrower_id, inventory_id, quantity, borrow_date, return_date, status [borrowed, returned, overdue], damaged_quantity, fine_amount, damage_image_url)
	- cart (id, borrower_id, status [requested, accepted, rejected], admin_id, reviewed_at)
	- cart_items (id, cart_id, inventory_id, quantity)
	- notifications (id, user_id, message, link, is_read)
	`
}
