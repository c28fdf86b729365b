package renderer

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CivicActions/Drupal-ACR/internal/services"
	"github.com/CivicActions/Drupal-ACR/internal/stage"
)

//go:embed templates/header.yaml
var defaultHeader []byte

// ReportDateLayout formats the report_date header field.
const ReportDateLayout = "2006-01-02"

// Header carries the values substituted into the header template.
type Header struct {
	ProductName    string
	ProductVersion string
	ReportDate     time.Time
}

// LoadHeader reads a header template, falling back to the embedded one when
// path is empty.
func LoadHeader(path string) ([]byte, error) {
	if path == "" {
		return defaultHeader, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage.Render, "load header",
			fmt.Sprintf("read header template %s", path), err)
	}
	return data, nil
}

// Document combines the header template with the chapters and encodes the
// result. Any chapters key already present in the template is replaced.
func Document(template []byte, header Header, chapters *yaml.Node) ([]byte, error) {
	root, err := loadMapping(template)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage.Render, "parse header",
			"header template is not a YAML mapping", err)
	}
	product, _ := lookup(root, "product")
	if product == nil || product.Kind != yaml.MappingNode {
		product = mapping()
		set(root, "product", product)
	}
	if header.ProductName != "" {
		set(product, "name", textNode(header.ProductName))
	}
	if header.ProductVersion != "" {
		set(product, "version", textNode(header.ProductVersion))
	}
	if !header.ReportDate.IsZero() {
		set(root, "report_date", scalar(header.ReportDate.Format(ReportDateLayout)))
	}
	set(root, "chapters", chapters)

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := Validate(buf.Bytes()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate re-parses rendered bytes and checks that every chapter is present.
func Validate(data []byte) error {
	var doc struct {
		Chapters map[string]struct {
			Criteria []struct {
				Num string `yaml:"num"`
			} `yaml:"criteria"`
		} `yaml:"chapters"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return services.Wrap(services.ErrParse, stage.Render, "validate", "rendered report is not valid YAML", err)
	}
	required := make([]string, 0, len(tierChapters)+len(BoilerplateChapters))
	for _, c := range tierChapters {
		required = append(required, c.Key)
	}
	required = append(required, BoilerplateChapters...)
	for _, key := range required {
		if _, ok := doc.Chapters[key]; !ok {
			return services.Wrap(services.ErrParse, stage.Render, "validate",
				fmt.Sprintf("rendered report lacks chapter %s", key), nil)
		}
	}
	return nil
}
