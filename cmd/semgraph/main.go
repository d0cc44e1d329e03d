// Package main provides the semgraph binary entry point.
// Semgraph is a knowledge-graph engine that coordinates SPARQL execution,
// ontology loading, inference, validation, and graph analytics against an
// external triple store.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/graph"
	"github.com/c360studio/semgraph/ontology"
	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/reason"
	"github.com/c360studio/semgraph/validate"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semgraph"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		endpoint   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "semgraph",
		Short: "Knowledge graph engine",
		Long: `Semgraph manages RDF triples in an external SPARQL store and layers
ontology-aware reasoning on top.

It provides:
- SPARQL query, update, and CONSTRUCT execution
- RDF import/export in Turtle, RDF/XML, JSON-LD, N-Triples, and N3
- Ontology loading with import resolution and cached projections
- Rule-based inference with optional materialization
- Schema validation, consistency analysis, and graph traversal`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Store endpoint override")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	loadApp := func() (*App, error) {
		var cfg *config.Config
		var err error
		if configPath != "" {
			cfg, err = config.LoadFromFile(configPath)
		} else {
			cfg, err = config.NewLoader(nil).Load()
		}
		if err != nil {
			return nil, err
		}
		if endpoint != "" {
			cfg.Store.Endpoint = endpoint
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return NewApp(cfg)
	}

	cmd.AddCommand(
		versionCmd(),
		queryCmd(loadApp),
		updateCmd(loadApp),
		importCmd(loadApp),
		exportCmd(loadApp),
		inferCmd(loadApp),
		validateCmd(loadApp),
		consistencyCmd(loadApp),
		statsCmd(loadApp),
		entityCmd(loadApp),
		pathCmd(loadApp),
		connectedCmd(loadApp),
		ontologyCmd(loadApp),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

type appLoader func() (*App, error)

// readArg resolves a positional argument that is either inline text or,
// with a leading @, a file path.
func readArg(arg string) (string, error) {
	if !strings.HasPrefix(arg, "@") {
		return arg, nil
	}
	data, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	return string(data), nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func queryCmd(load appLoader) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <sparql|@file>",
		Short: "Execute a SELECT, ASK, or CONSTRUCT query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readArg(args[0])
			if err != nil {
				return err
			}
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			if form, err := graph.DetectForm(query); err == nil && form == graph.FormConstruct {
				out, err := app.Coordinator.ExecuteConstruct(cmd.Context(), query, format)
				if err != nil {
					return err
				}
				fmt.Print(out.Data)
				return nil
			}

			result, err := app.Coordinator.ExecuteSelectOrAsk(cmd.Context(), query)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "turtle", "CONSTRUCT output format")
	return cmd
}

func updateCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "update <sparql|@file>",
		Short: "Execute a SPARQL update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := readArg(args[0])
			if err != nil {
				return err
			}
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			ack, err := app.Coordinator.ExecuteUpdate(cmd.Context(), update)
			if err != nil {
				return err
			}
			return printJSON(ack)
		},
	}
}

func importCmd(load appLoader) *cobra.Command {
	var format, graphURI string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an RDF file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.Coordinator.Import(cmd.Context(), string(data), format, graphURI)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "turtle", "Input format (turtle, rdfxml, jsonld, ntriples, n3)")
	cmd.Flags().StringVarP(&graphURI, "graph", "g", "", "Target named graph URI")
	return cmd
}

func exportCmd(load appLoader) *cobra.Command {
	var format, graphURI, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the store or one named graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			serialized, err := app.Coordinator.Export(cmd.Context(), format, graphURI)
			if err != nil {
				return err
			}
			if outPath != "" {
				return os.WriteFile(outPath, []byte(serialized), 0644)
			}
			fmt.Print(serialized)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "turtle", "Output format (unknown falls back to turtle)")
	cmd.Flags().StringVarP(&graphURI, "graph", "g", "", "Named graph URI (empty = default graph)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func inferCmd(load appLoader) *cobra.Command {
	var (
		kind        string
		graphURI    string
		rulesPath   string
		explain     bool
		materialize bool
	)

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Run inference and report derived triples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rules []reason.Rule
			if rulesPath != "" {
				data, err := os.ReadFile(rulesPath)
				if err != nil {
					return fmt.Errorf("read rules: %w", err)
				}
				if err := json.Unmarshal(data, &rules); err != nil {
					return fmt.Errorf("parse rules: %w", err)
				}
			}
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			run, err := app.Reasoner.PerformInference(cmd.Context(), reason.Request{
				GraphURI:    graphURI,
				Kind:        reason.ParseKind(kind),
				Rules:       rules,
				Explain:     explain,
				Materialize: materialize,
			})
			if err != nil {
				return err
			}
			return printJSON(run)
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "owl", "Reasoner kind (owl, owl-mini, owl-micro, rdfs, transitive, custom)")
	cmd.Flags().StringVarP(&graphURI, "graph", "g", "", "Named graph URI (empty = default graph)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "JSON file of custom rules")
	cmd.Flags().BoolVar(&explain, "explain", false, "Attach premises and rule per derived triple")
	cmd.Flags().BoolVar(&materialize, "materialize", false, "Write derived triples back to the store")
	return cmd
}

func validateCmd(load appLoader) *cobra.Command {
	var (
		ontologyURI string
		extras      []string
		graphURI    string
		fixes       bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate store data against an ontology",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			scope := validate.ScopeFull
			if graphURI != "" {
				scope = validate.ScopeGraph
			}
			result, err := app.Validator.ValidateData(cmd.Context(), validate.Request{
				Scope:           scope,
				GraphURI:        graphURI,
				OntologyURI:     ontologyURI,
				ExtraOntologies: extras,
				SuggestFixes:    fixes,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVarP(&ontologyURI, "ontology", "O", "", "Ontology URI to validate against (required)")
	cmd.Flags().StringArrayVar(&extras, "extra-ontology", nil, "Additional ontology URIs")
	cmd.Flags().StringVarP(&graphURI, "graph", "g", "", "Restrict validation to one named graph")
	cmd.Flags().BoolVar(&fixes, "fixes", false, "Suggest fixes for recognized issue types")
	_ = cmd.MarkFlagRequired("ontology")
	return cmd
}

func consistencyCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "consistency",
		Short: "Check the whole store for inconsistencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Validator.CheckConsistency(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func statsCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print graph statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.Coordinator.GetStatistics(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func pathCmd(load appLoader) *cobra.Command {
	var maxLength int

	cmd := &cobra.Command{
		Use:   "path <from> <to>",
		Short: "Find a minimum-hop path between two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Traverser.FindPath(cmd.Context(), args[0], args[1], maxLength)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().IntVar(&maxLength, "max-length", 5, "Maximum path length in hops")
	return cmd
}

func connectedCmd(load appLoader) *cobra.Command {
	var distance int

	cmd := &cobra.Command{
		Use:   "connected <uri>",
		Short: "List entities reachable within N hops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Traverser.FindConnectedEntities(cmd.Context(), args[0], distance)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().IntVarP(&distance, "distance", "d", 1, "Maximum hop distance")
	return cmd
}

func entityCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Create, inspect, update, and delete entities",
	}
	cmd.AddCommand(
		entityCreateCmd(load),
		entityGetCmd(load),
		entityUpdateCmd(load),
		entityDeleteCmd(load),
	)
	return cmd
}

// parseProps turns repeated predicate=value flags into an ordered property
// bag. Values wrapped in angle brackets are URI references, everything else
// is a plain literal.
func parseProps(props []string) (map[string]rdf.Value, []string, error) {
	values := make(map[string]rdf.Value, len(props))
	var order []string
	for _, prop := range props {
		predicate, raw, ok := strings.Cut(prop, "=")
		if !ok || predicate == "" {
			return nil, nil, fmt.Errorf("property %q is not predicate=value", prop)
		}
		if inner, found := strings.CutPrefix(raw, "<"); found && strings.HasSuffix(inner, ">") {
			values[predicate] = rdf.URIValue(strings.TrimSuffix(inner, ">"))
		} else {
			values[predicate] = rdf.LiteralValue(raw)
		}
		order = append(order, predicate)
	}
	return values, order, nil
}

func entityCreateCmd(load appLoader) *cobra.Command {
	var (
		typeURI string
		props   []string
	)

	cmd := &cobra.Command{
		Use:   "create <uri>",
		Short: "Create an entity with a type and properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, order, err := parseProps(props)
			if err != nil {
				return err
			}
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			count, err := app.Coordinator.CreateEntity(cmd.Context(), graph.EntityRequest{
				URI:           args[0],
				Type:          typeURI,
				Properties:    values,
				PropertyOrder: order,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"uri": args[0], "triple_count": count})
		},
	}
	cmd.Flags().StringVarP(&typeURI, "type", "t", "", "rdf:type class URI")
	cmd.Flags().StringArrayVarP(&props, "prop", "p", nil, "Property as predicate=value; wrap URI values in <>")
	return cmd
}

func entityGetCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "get <uri>",
		Short: "Show an entity's types, properties, and incoming links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			entity, err := app.Coordinator.GetEntity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(entity)
		},
	}
}

func entityUpdateCmd(load appLoader) *cobra.Command {
	var (
		deletes []string
		props   []string
	)

	cmd := &cobra.Command{
		Use:   "update <uri>",
		Short: "Clear predicates and assert new properties on an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, order, err := parseProps(props)
			if err != nil {
				return err
			}
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Coordinator.UpdateEntity(cmd.Context(), args[0], graph.EntityUpdate{
				DeletePredicates: deletes,
				AddProperties:    values,
				AddOrder:         order,
			}); err != nil {
				return err
			}
			return printJSON(map[string]any{"uri": args[0], "updated": true})
		},
	}
	cmd.Flags().StringArrayVar(&deletes, "delete", nil, "Predicate URI to clear (repeatable)")
	cmd.Flags().StringArrayVarP(&props, "prop", "p", nil, "Property as predicate=value; wrap URI values in <>")
	return cmd
}

func entityDeleteCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uri>",
		Short: "Remove every triple naming the entity as subject or object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Coordinator.DeleteEntity(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printJSON(map[string]any{"uri": args[0], "deleted": true})
		},
	}
}

func ontologyCmd(load appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ontology",
		Short: "Load and inspect ontologies",
	}
	cmd.AddCommand(
		ontologyLoadCmd(load),
		ontologyListCmd(load),
		ontologyClassesCmd(load),
		ontologyPropertiesCmd(load),
	)
	return cmd
}

func ontologyLoadCmd(load appLoader) *cobra.Command {
	var (
		filePath    string
		format      string
		name        string
		version     string
		loadImports bool
		validateIt  bool
	)

	cmd := &cobra.Command{
		Use:   "load <uri>",
		Short: "Load an ontology from its URI or a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ontology.LoadRequest{
				URI:            args[0],
				Name:           name,
				Version:        version,
				Source:         ontology.SourceURL,
				Format:         format,
				LoadImports:    loadImports,
				ValidateOnLoad: validateIt,
			}
			if filePath != "" {
				data, err := os.ReadFile(filePath)
				if err != nil {
					return fmt.Errorf("read %s: %w", filePath, err)
				}
				req.Source = ontology.SourceInline
				req.Content = string(data)
			}
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Registry.LoadOntology(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "F", "", "Load from a local file instead of dereferencing the URI")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Serialization hint (turtle, rdfxml, jsonld, ntriples, n3)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&version, "ont-version", "", "Ontology version label")
	cmd.Flags().BoolVar(&loadImports, "imports", false, "Follow owl:imports")
	cmd.Flags().BoolVar(&validateIt, "validate", false, "Run structural validation on load")
	return cmd
}

func ontologyListCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded ontologies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()
			return printJSON(app.Registry.ListOntologies())
		},
	}
}

func ontologyClassesCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "classes <id>",
		Short: "List the classes of a loaded ontology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()
			return printJSON(app.Registry.GetClasses(args[0]))
		},
	}
}

func ontologyPropertiesCmd(load appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "properties <id>",
		Short: "List the properties of a loaded ontology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			defer app.Close()
			return printJSON(app.Registry.GetProperties(args[0]))
		},
	}
}
