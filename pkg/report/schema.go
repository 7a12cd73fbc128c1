package report

// Schema is the JSON Schema for the export projection, kept alongside the
// types so renderer authors and the export schema test validate against the
// same contract.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "summary", "nodes", "edges", "issues", "hotspots", "diagnostics"],
  "properties": {
    "schema_version": {"type": "string"},
    "summary": {
      "type": "object",
      "required": ["root", "modules", "internal_edges", "external_edges", "health_score", "grade", "issue_count", "cyclic_modules"],
      "properties": {
        "root": {"type": "string"},
        "modules": {"type": "integer", "minimum": 0},
        "internal_edges": {"type": "integer", "minimum": 0},
        "external_edges": {"type": "integer", "minimum": 0},
        "health_score": {"type": "number", "minimum": 0, "maximum": 1},
        "grade": {"enum": ["A", "B", "C", "D", "F"]},
        "issue_count": {"type": "integer", "minimum": 0},
        "cyclic_modules": {"type": "integer", "minimum": 0}
      }
    },
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["module", "internal", "in_cycle", "couplings_in", "couplings_out", "metrics", "items"],
        "properties": {
          "module": {"type": "string"},
          "volatility": {"enum": ["Low", "Medium", "High", "Unknown"]}
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target", "strength", "distance", "volatility", "contexts", "count", "balance"],
        "properties": {
          "strength": {"enum": ["Contract", "Model", "Functional", "Intrusive"]},
          "distance": {"enum": ["SameFunction", "SameModule", "DifferentModule", "DifferentCrate"]},
          "volatility": {"enum": ["Low", "Medium", "High", "Unknown"]},
          "balance": {
            "type": "object",
            "required": ["value", "classification"],
            "properties": {
              "value": {"type": "number", "minimum": 0, "maximum": 1},
              "classification": {"enum": ["global_complexity", "high_cohesion", "loose_coupling", "local_complexity"]}
            }
          }
        }
      }
    },
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "severity", "module", "message"],
        "properties": {
          "severity": {"enum": ["critical", "high", "medium"]}
        }
      }
    },
    "hotspots": {"type": "array"},
    "diagnostics": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "message"]
      }
    }
  }
}`
