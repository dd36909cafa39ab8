package manifest

// IdentitySchema is the JSON Schema for the minimal manifest shape. Entry
// lists (capabilities, credentials, commands) are filtered element-wise by
// the validator rather than rejected wholesale, so the schema only pins the
// identity fields and the container types.
const IdentitySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "version", "capabilities"],
  "properties": {
    "id": {
      "type": "string",
      "minLength": 1,
      "description": "Unique plugin identifier"
    },
    "name": {
      "type": "string",
      "minLength": 1,
      "description": "Human-readable plugin name"
    },
    "version": {
      "type": "string",
      "minLength": 1,
      "description": "Plugin version"
    },
    "capabilities": {
      "type": "array",
      "description": "Declared extension points"
    },
    "credentials": {
      "type": "array"
    },
    "commands": {
      "type": "array"
    },
    "requires": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": { "type": "string", "minLength": 1 },
          "version": { "type": "string" }
        }
      }
    },
    "integrity": {
      "type": "object",
      "required": ["algorithm", "hash"],
      "properties": {
        "algorithm": { "type": "string" },
        "hash": { "type": "string" }
      }
    },
    "compatibility": {
      "type": "object",
      "properties": {
        "minVersion": { "type": "string" },
        "maxVersion": { "type": "string" }
      }
    }
  }
}`
