package schema

import (
	"reflect"
	"strings"
)

// FromStruct generates a JSON Schema from a Go struct type
func FromStruct(t reflect.Type) *Schema {
	return generateSchemaFromType(t)
}

// FromStructOf generates a JSON Schema for the type parameter T
func FromStructOf[T any]() *Schema {
	var zero T
	return generateSchemaFromType(reflect.TypeOf(zero))
}

func generateSchemaFromType(t reflect.Type) *Schema {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := &Schema{}

	switch t.Kind() {
	case reflect.String:
		schema.Type = "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		schema.Type = "integer"
	case reflect.Float32, reflect.Float64:
		schema.Type = "number"
	case reflect.Bool:
		schema.Type = "boolean"
	case reflect.Slice, reflect.Array:
		schema.Type = "array"
		schema.Items = generateSchemaFromType(t.Elem())
	case reflect.Struct:
		schema.Type = "object"
		schema.Properties = make(map[string]*Schema)
		schema.Required = make([]string, 0)

		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}

			jsonTag := field.Tag.Get("json")
			fieldName := field.Name
			omitempty := false
			if jsonTag != "" && jsonTag != "-" {
				parts := strings.Split(jsonTag, ",")
				if parts[0] != "" {
					fieldName = parts[0]
				}
				for _, p := range parts[1:] {
					if p == "omitempty" {
						omitempty = true
					}
				}
			}
			if jsonTag == "-" {
				continue
			}

			propSchema := generateSchemaFromType(field.Type)

			if desc := field.Tag.Get("description"); desc != "" {
				propSchema.Description = desc
			}

			schema.Properties[fieldName] = propSchema

			// Non-omitempty fields are required, matching how callers
			// expect the generated schema to constrain model output.
			if !omitempty {
				schema.Required = append(schema.Required, fieldName)
			}
		}
	case reflect.Map:
		schema.Type = "object"
	}

	return schema
}
