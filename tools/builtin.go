package tools

// BuiltinSpecs returns the fixed tool catalogue of spec.md §4.1. There is no
// DSL/codegen step here (unlike the teacher, which generates ToolSpec values
// from a Goa design): the catalogue is small, fixed, and hand-authored once.
func BuiltinSpecs() []*Spec {
	specs := []*Spec{
		// --- Context tools (read-only, executed locally) ---
		{
			Name:        "get_active_script",
			Category:    CategoryContext,
			Description: "Return the active script path and text from chat context.",
			SchemaJSON:  objectSchema(nil, nil),
		},
		{
			Name:        "list_selection",
			Category:    CategoryContext,
			Description: "Return the editor's current selection.",
			SchemaJSON:  objectSchema(nil, nil),
		},
		{
			Name:        "list_open_documents",
			Category:    CategoryContext,
			Description: "Return open document paths, optionally bounded by maxCount.",
			Clamps:      map[string]Clamp{"maxCount": {Min: 1, Max: 200, HasMin: true, HasMax: true, Default: 50}},
			SchemaJSON: objectSchema(map[string]string{
				"maxCount": `{"type":"number"}`,
			}, nil),
		},
		{
			Name:        "list_children",
			Category:    CategoryContext,
			Description: "List scene children under parentPath, bounded by depth/maxNodes/classWhitelist.",
			Aliases:     map[string]string{"path": "parentPath"},
			ArrayFields: []string{"classWhitelist"},
			Clamps: map[string]Clamp{
				"depth":    {Min: 0, Max: 10, HasMin: true, HasMax: true, Default: 1},
				"maxNodes": {Min: 1, Max: 2000, HasMin: true, HasMax: true, Default: 200},
			},
			SchemaJSON: objectSchema(map[string]string{
				"parentPath":     `{"type":"string","minLength":1}`,
				"depth":          `{"type":"number"}`,
				"maxNodes":       `{"type":"number"}`,
				"classWhitelist": `{"type":"array","items":{"type":"string"}}`,
			}, []string{"parentPath"}),
		},
		{
			Name:               "get_properties",
			Category:           CategoryContext,
			Description:        "Return properties for the instance at path.",
			ArrayFields:        []string{"keys"},
			JSONStringFields:   []string{},
			Clamps:             map[string]Clamp{"maxBytes": {Min: 256, Max: 200000, HasMin: true, HasMax: true, Default: 8000}},
			SchemaJSON: objectSchema(map[string]string{
				"path":                `{"type":"string","minLength":1}`,
				"keys":                `{"type":"array","items":{"type":"string"}}`,
				"includeAllAttributes": `{"type":"boolean"}`,
				"maxBytes":            `{"type":"number"}`,
			}, []string{"path"}),
		},
		{
			Name:        "list_code_definition_names",
			Category:    CategoryContext,
			Description: "List code definition names from the mirrored code snapshot.",
			ArrayFields: []string{"exts"},
			Clamps:      map[string]Clamp{"limit": {Min: 1, Max: 500, HasMin: true, HasMax: true, Default: 100}},
			SchemaJSON: objectSchema(map[string]string{
				"root":  `{"type":"string"}`,
				"limit": `{"type":"number"}`,
				"exts":  `{"type":"array","items":{"type":"string"}}`,
			}, nil),
		},
		{
			Name:        "search_files",
			Category:    CategoryContext,
			Description: "Search the mirrored code snapshot for query.",
			ArrayFields: []string{"exts"},
			Clamps:      map[string]Clamp{"limit": {Min: 1, Max: 200, HasMin: true, HasMax: true, Default: 50}},
			SchemaJSON: objectSchema(map[string]string{
				"query":         `{"type":"string","minLength":1}`,
				"root":          `{"type":"string"}`,
				"limit":         `{"type":"number"}`,
				"exts":          `{"type":"array","items":{"type":"string"}}`,
				"caseSensitive": `{"type":"boolean"}`,
			}, []string{"query"}),
		},

		// --- Planning (meta) tools ---
		{
			Name:        "start_plan",
			Category:    CategoryPlanning,
			Description: "Record the initial ordered plan steps.",
			ArrayFields: []string{"steps"},
			SchemaJSON: objectSchema(map[string]string{
				"steps": `{"type":"array","items":{"type":"string"}}`,
			}, []string{"steps"}),
		},
		{
			Name:        "update_plan",
			Category:    CategoryPlanning,
			Description: "Mark a plan step complete and/or set the next step.",
			SchemaJSON: objectSchema(map[string]string{
				"completedStep": `{"type":"string"}`,
				"nextStep":      `{"type":"string"}`,
				"notes":         `{"type":"string"}`,
			}, nil),
		},

		// --- Scripting tools ---
		{
			Name:        "open_or_create_script",
			Category:    CategoryMutating,
			Description: "Open an existing script or create one under parentPath with name.",
			SchemaJSON: objectSchema(map[string]string{
				"path":       `{"type":"string"}`,
				"parentPath": `{"type":"string"}`,
				"name":       `{"type":"string"}`,
			}, nil),
		},
		{
			Name:             "show_diff",
			Category:         CategoryMutating,
			Description:      "Preview a set of range edits against a script without committing.",
			JSONStringFields: []string{"edits"},
			SchemaJSON: objectSchema(map[string]string{
				"path":  `{"type":"string"}`,
				"edits": `{"type":"array"}`,
			}, []string{"edits"}),
		},
		{
			Name:             "apply_edit",
			Category:         CategoryMutating,
			Description:      "Apply a set of range edits to a script.",
			JSONStringFields: []string{"edits"},
			SchemaJSON: objectSchema(map[string]string{
				"path":  `{"type":"string"}`,
				"edits": `{"type":"array"}`,
			}, []string{"edits"}),
		},

		// --- Instance ops ---
		{
			Name:             "create_instance",
			Category:         CategoryMutating,
			Description:      "Create a new instance of className under parentPath.",
			Aliases:          map[string]string{"parent": "parentPath"},
			JSONStringFields: []string{"props"},
			SchemaJSON: objectSchema(map[string]string{
				"className":  `{"type":"string","minLength":1}`,
				"parentPath": `{"type":"string","minLength":1}`,
				"props":      `{"type":"object"}`,
			}, []string{"className", "parentPath"}),
		},
		{
			Name:             "set_properties",
			Category:         CategoryMutating,
			Description:      "Set properties on the instance at path.",
			JSONStringFields: []string{"props"},
			SchemaJSON: objectSchema(map[string]string{
				"path":  `{"type":"string"}`,
				"props": `{"type":"object"}`,
			}, []string{"props"}),
		},
		{
			Name:        "rename_instance",
			Category:    CategoryMutating,
			Description: "Rename the instance at path.",
			SchemaJSON: objectSchema(map[string]string{
				"path":    `{"type":"string"}`,
				"newName": `{"type":"string","minLength":1}`,
			}, []string{"newName"}),
		},
		{
			Name:        "delete_instance",
			Category:    CategoryMutating,
			Description: "Delete the instance at path.",
			SchemaJSON: objectSchema(map[string]string{
				"path": `{"type":"string"}`,
			}, nil),
		},

		// --- Asset tools ---
		{
			Name:        "search_assets",
			Category:    CategoryMutating,
			Description: "Search the asset catalog for query, optionally filtered by tags.",
			Aliases:     map[string]string{"q": "query"},
			ArrayFields: []string{"tags"},
			Clamps:      map[string]Clamp{"limit": {Min: 1, Max: 50, HasMin: true, HasMax: true, Default: 6}},
			SchemaJSON: objectSchema(map[string]string{
				"query": `{"type":"string"}`,
				"tags":  `{"type":"array","items":{"type":"string"}}`,
				"limit": `{"type":"number"}`,
			}, nil),
		},
		{
			Name:             "insert_asset",
			Category:         CategoryMutating,
			Description:      "Insert a catalog asset by id under parentPath.",
			JSONStringFields: []string{},
			SchemaJSON: objectSchema(map[string]string{
				"assetId":    `{"type":"number"}`,
				"parentPath": `{"type":"string"}`,
			}, []string{"assetId"}),
		},
		{
			Name:        "generate_asset_3d",
			Category:    CategoryMutating,
			Description: "Generate a 3D asset from a text prompt.",
			ArrayFields: []string{"tags"},
			SchemaJSON: objectSchema(map[string]string{
				"prompt": `{"type":"string","minLength":1}`,
				"tags":   `{"type":"array","items":{"type":"string"}}`,
				"style":  `{"type":"string"}`,
				"budget": `{"type":"number"}`,
			}, []string{"prompt"}),
		},

		// --- Messaging tools ---
		{
			Name:        "message",
			Category:    CategoryMutating,
			Description: "Emit a transient assistant-text update (never a proposal).",
			SchemaJSON: objectSchema(map[string]string{
				"text":  `{"type":"string"}`,
				"phase": `{"type":"string","enum":["start","update","final"]}`,
			}, []string{"text"}),
		},
		{
			Name:        "final_message",
			Category:    CategoryMutating,
			Description: "Emit a Completion proposal with the given summary text.",
			Aliases:     map[string]string{"result": "text"},
			SchemaJSON: objectSchema(map[string]string{
				"text":       `{"type":"string"}`,
				"confidence": `{"type":"number","minimum":0,"maximum":1}`,
			}, []string{"text"}),
		},
		{
			Name:        "complete",
			Category:    CategoryMutating,
			Description: "Emit a Completion proposal with the given summary.",
			SchemaJSON: objectSchema(map[string]string{
				"summary":    `{"type":"string"}`,
				"confidence": `{"type":"number","minimum":0,"maximum":1}`,
			}, []string{"summary"}),
		},
		{
			Name:        "attempt_completion",
			Category:    CategoryMutating,
			Description: "Alias of complete; result maps to summary.",
			Aliases:     map[string]string{"result": "summary"},
			SchemaJSON: objectSchema(map[string]string{
				"summary":    `{"type":"string"}`,
				"confidence": `{"type":"number","minimum":0,"maximum":1}`,
			}, []string{"summary"}),
		},
	}
	return specs
}

// objectSchema builds a literal JSON Schema object for a tool payload.
// additionalProperties is left true: the registry's job is to validate the
// fields it knows about, not to reject whatever extra metadata a model
// tacks onto a call.
func objectSchema(properties map[string]string, required []string) []byte {
	b := []byte(`{"type":"object","additionalProperties":true`)
	if len(properties) > 0 {
		b = append(b, []byte(`,"properties":{`)...)
		first := true
		for k, v := range properties {
			if !first {
				b = append(b, ',')
			}
			first = false
			b = append(b, []byte(`"`+k+`":`+v)...)
		}
		b = append(b, '}')
	}
	if len(required) > 0 {
		b = append(b, []byte(`,"required":[`)...)
		for i, r := range required {
			if i > 0 {
				b = append(b, ',')
			}
			b = append(b, []byte(`"`+r+`"`)...)
		}
		b = append(b, ']')
	}
	b = append(b, '}')
	return b
}
