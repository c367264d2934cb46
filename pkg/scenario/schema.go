package scenario

// Schema is the JSON Schema scenario documents are validated against before
// any step runs.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "steps"],
  "additionalProperties": false,
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1,
      "description": "Scenario name, used in logs, metrics and history"
    },
    "description": {
      "type": "string",
      "description": "What the scenario does"
    },
    "context": {
      "type": "object",
      "additionalProperties": { "type": "string" },
      "description": "Initial state values, available to selector templates as {key}"
    },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["action"],
        "additionalProperties": false,
        "properties": {
          "action": {
            "type": "string",
            "minLength": 1,
            "description": "Name of a registered action"
          },
          "params": {
            "type": "object",
            "description": "Parameters passed to the action"
          },
          "continue_on_error": {
            "type": "boolean",
            "description": "Keep running later steps when this one fails"
          }
        }
      }
    }
  }
}`
