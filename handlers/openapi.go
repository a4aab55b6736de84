package handlers

import (
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/shopspring/decimal"
)

var pathParam = regexp.MustCompile(`:([A-Za-z_]+)`)

// OpenAPIPath converts a gin path into its OpenAPI template form.
func OpenAPIPath(ginPath string) string {
	return pathParam.ReplaceAllString(ginPath, "{$1}")
}

func operationId(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(strings.TrimPrefix(path, "/api/"), "/") {
		seg = strings.TrimPrefix(seg, ":")
		for _, word := range strings.FieldsFunc(seg, func(r rune) bool { return r == '-' || r == '_' }) {
			b.WriteString(strings.ToUpper(word[:1]) + word[1:])
		}
	}
	return b.String()
}

const errorSchemaName = "Error"

// BuildOpenAPI describes routes as an OpenAPI 3 document.
func BuildOpenAPI(title, version string, routes []Route) (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				errorSchemaName: openapi3.NewSchemaRef("", openapi3.NewObjectSchema().
					WithProperty("error", openapi3.NewStringSchema()).
					WithProperty("fields", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema()))),
			},
			SecuritySchemes: openapi3.SecuritySchemes{
				"bearer": &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{Type: "http", Scheme: "bearer"}},
				"token":  &openapi3.SecuritySchemeRef{Value: &openapi3.SecurityScheme{Type: "apiKey", In: "header", Name: "token"}},
			},
		},
		Security: *openapi3.NewSecurityRequirements().
			With(openapi3.NewSecurityRequirement().Authenticate("bearer")).
			With(openapi3.NewSecurityRequirement().Authenticate("token")),
	}
	for _, route := range routes {
		op, err := buildOperation(route, doc.Components.Schemas)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", route.Method, route.Path, err)
		}
		path := OpenAPIPath(route.Path)
		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}
		item.SetOperation(route.Method, op)
	}
	return doc, nil
}

func buildOperation(route Route, schemas openapi3.Schemas) (*openapi3.Operation, error) {
	op := openapi3.NewOperation()
	op.OperationID = operationId(route.Method, route.Path)
	op.Summary = route.Summary
	if route.Tag != "" {
		op.Tags = []string{route.Tag}
	}
	for _, m := range pathParam.FindAllStringSubmatch(route.Path, -1) {
		op.AddParameter(openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewIntegerSchema()))
	}
	for _, q := range route.Query {
		op.AddParameter(openapi3.NewQueryParameter(q).WithSchema(querySchema(q)))
	}
	if len(route.Roles) > 0 {
		roles := make([]string, 0, len(route.Roles))
		for _, r := range route.Roles {
			roles = append(roles, string(r))
		}
		op.Extensions = map[string]any{"x-roles": roles}
	}
	if route.Request != nil {
		ref, err := schemaFor(route.Request, schemas)
		if err != nil {
			return nil, fmt.Errorf("request schema: %w", err)
		}
		op.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref)}
	}

	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	success := openapi3.NewResponse().WithDescription(http.StatusText(status))
	switch {
	case route.Produces != "":
		success.WithContent(openapi3.NewContentWithSchema(openapi3.NewStringSchema().WithFormat("binary"), []string{route.Produces}))
	case route.Response != nil:
		ref, err := schemaFor(route.Response, schemas)
		if err != nil {
			return nil, fmt.Errorf("response schema: %w", err)
		}
		success.WithJSONSchemaRef(ref)
	}
	op.Responses = openapi3.NewResponsesWithCapacity(5)
	op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: success})

	errRef := &openapi3.SchemaRef{Ref: "#/components/schemas/" + errorSchemaName, Value: schemas[errorSchemaName].Value}
	for _, code := range errorStatuses(route) {
		op.Responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(http.StatusText(code)).WithJSONSchemaRef(errRef),
		})
	}
	return op, nil
}

func errorStatuses(route Route) []int {
	codes := []int{http.StatusBadRequest, http.StatusUnauthorized}
	if len(route.Roles) > 0 {
		codes = append(codes, http.StatusForbidden)
	}
	if strings.Contains(route.Path, ":") {
		codes = append(codes, http.StatusNotFound)
	}
	return codes
}

func querySchema(name string) *openapi3.Schema {
	switch {
	case name == "page" || name == "limit" || strings.HasSuffix(name, "_id"):
		return openapi3.NewIntegerSchema()
	case strings.HasPrefix(name, "is_"):
		return openapi3.NewBoolSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// schemaFor generates the schema of a body from its json tags.
// Decimals travel as strings, so they are described as such.
func schemaFor(value any, schemas openapi3.Schemas) (*openapi3.SchemaRef, error) {
	return openapi3gen.NewSchemaRefForValue(value, schemas,
		openapi3gen.UseAllExportedFields(),
		openapi3gen.SchemaCustomizer(func(_ string, t reflect.Type, _ reflect.StructTag, schema *openapi3.Schema) error {
			if t == decimalType {
				*schema = *openapi3.NewStringSchema()
			}
			return nil
		}),
	)
}
