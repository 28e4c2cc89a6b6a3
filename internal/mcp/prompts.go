package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("newsletter",
		mcp.WithPromptDescription("Guide through building a newsletter template from blocks"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("Subject of the newsletter"),
			mcp.RequiredArgument(),
		),
	), s.handleNewsletterPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("promotion",
		mcp.WithPromptDescription("Build a promotional email around a discount code and featured products"),
		mcp.WithArgument("discountCode",
			mcp.ArgumentDescription("Discount code to feature"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("productIds",
			mcp.ArgumentDescription("Comma-separated product ids to feature (optional)"),
		),
	), s.handlePromotionPrompt)
}

func (s *Server) handleNewsletterPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Build a newsletter about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Build a newsletter email about "%s". Follow these steps:

1. create_template with a descriptive name
2. insert_block a logo, then a heading; set the heading text with update_block_content
3. Add two or three text blocks (format "markdown" is allowed) with the body copy
4. Insert a columns block and put an image and a text block inside it (parentId)
5. Finish with a button linking to the store, a divider and a footer
6. render_template to review the HTML, fix anything that looks wrong, then save_template

Use get_block_schema before editing content so values satisfy the block's schema.`, topic),
				},
			},
		},
	}, nil
}

func (s *Server) handlePromotionPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	code := req.Params.Arguments["discountCode"]
	products := req.Params.Arguments["productIds"]
	productStep := "Insert a product-grid block and fill it with pick_record refs from the catalog"
	if products != "" {
		productStep = fmt.Sprintf("Insert a product-grid block and fill it with pick_record refs=%q", products)
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Promotional email for code %s", code),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Create a promotional email featuring discount code "%s":

1. create_template, then insert a logo and a short, punchy heading
2. Insert a discount block and use pick_record ref=%q so the code, description and expiry come from the catalog
3. %s
4. Add a button pointing to the store and a footer
5. render_template and check that the discount is visible, then save_template

If the catalog reports the discount as expired, tell the user instead of saving.`, code, code, productStep),
				},
			},
		},
	}, nil
}
