package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	uriBlockTypes = "emailbuilder://block-types"
	uriTemplates  = "emailbuilder://templates"
	uriTemplate   = "emailbuilder://template/"
)

func (s *Server) registerResources() {
	// ── emailbuilder://block-types ─────────────────────
	s.mcp.AddResource(mcp.NewResource(
		uriBlockTypes,
		"Block types",
		mcp.WithMIMEType("application/json"),
	), s.handleBlockTypesResource)

	// ── emailbuilder://templates ───────────────────────
	s.mcp.AddResource(mcp.NewResource(
		uriTemplates,
		"Saved templates",
		mcp.WithMIMEType("application/json"),
	), s.handleTemplatesResource)

	// ── emailbuilder://template/{templateId}/tree ──────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			uriTemplate+"{templateId}/tree",
			"Block tree of a template",
		),
		s.handleTemplateTreeResource,
	)

	// ── emailbuilder://template/{templateId}/html ──────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			uriTemplate+"{templateId}/html",
			"Rendered HTML of a template",
		),
		s.handleTemplateHTMLResource,
	)
}

func (s *Server) handleBlockTypesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	res, err := s.handleListBlockTypes(ctx, mcp.CallToolRequest{})
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uriBlockTypes,
			MIMEType: "application/json",
			Text:     res.Content[0].(mcp.TextContent).Text,
		},
	}, nil
}

func (s *Server) handleTemplatesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, err
	}

	type templateSummary struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	summaries := make([]templateSummary, 0, len(templates))
	for _, t := range templates {
		summaries = append(summaries, templateSummary{ID: t.ID, Name: t.Name})
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uriTemplates,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleTemplateTreeResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := templateIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract templateId from URI: %s", uri)
	}
	sess, err := s.templates.Open(ctx, id)
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(summarizeTree(sess.Blocks()), "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleTemplateHTMLResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := templateIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract templateId from URI: %s", uri)
	}
	sess, err := s.templates.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/html",
			Text:     sess.Render(),
		},
	}, nil
}

// templateIDFromURI extracts the id from "emailbuilder://template/{id}/...".
func templateIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriTemplate)
	if !ok {
		return ""
	}
	id, _, found := strings.Cut(rest, "/")
	if !found {
		return ""
	}
	return id
}
