package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/corpusrag/internal/config"
	"github.com/Aman-CERP/corpusrag/internal/embed"
	"github.com/Aman-CERP/corpusrag/internal/output"
)

const projectConfigName = ".corpusrag.yaml"

// mcpServerConfig is one server entry in .mcp.json.
type mcpServerConfig struct {
	Type    string   `json:"type,omitempty"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// mcpConfig is the root .mcp.json structure.
type mcpConfig struct {
	MCPServers map[string]mcpServerConfig `json:"mcpServers"`
}

func newInitCmd() *cobra.Command {
	var (
		force    bool
		provider string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a project config and register the MCP server",
		Long: `Write .corpusrag.yaml with every setting at its default value, and add a
"corpusrag" entry to .mcp.json so MCP clients can start 'corpusrag serve'.

Existing entries in .mcp.json are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, force, provider)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .corpusrag.yaml")
	cmd.Flags().StringVar(&provider, "provider", "", "Embedding provider to record: openai or static")

	return cmd
}

func runInit(cmd *cobra.Command, force bool, provider string) error {
	out := output.New(cmd.OutOrStdout())

	cfg := config.NewConfig()
	if provider != "" {
		p, err := embed.ParseProvider(provider)
		if err != nil {
			return err
		}
		cfg.Embeddings.Provider = string(p)
	}

	path := filepath.Join(projectDir, projectConfigName)
	if _, err := os.Stat(path); err == nil && !force {
		out.Statusf("-", "%s already exists (use --force to overwrite)", path)
	} else {
		if err := cfg.WriteYAML(path); err != nil {
			return err
		}
		out.Statusf("+", "Wrote %s", path)
	}

	mcpPath := filepath.Join(projectDir, ".mcp.json")
	if err := registerMCPServer(mcpPath); err != nil {
		return err
	}
	out.Statusf("+", "Registered corpusrag in %s", mcpPath)
	return nil
}

// registerMCPServer adds or replaces the corpusrag entry in path.
func registerMCPServer(path string) error {
	mc := mcpConfig{MCPServers: map[string]mcpServerConfig{}}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &mc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if mc.MCPServers == nil {
			mc.MCPServers = map[string]mcpServerConfig{}
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("read %s: %w", path, err)
	}

	mc.MCPServers["corpusrag"] = mcpServerConfig{
		Type:    "stdio",
		Command: "corpusrag",
		Args:    []string{"serve", "--watch"},
	}

	data, err = json.MarshalIndent(mc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
