package testutil

import (
	"path/filepath"
	"testing"
)

// FooPipelineHCL is the reference pipeline used across the test suite:
// do_something produces a number that feeds input x of do_input.
const FooPipelineHCL = `
pipeline "foo" {
  mode "default" {}
  mode "other" {}

  solid "do_something" {
    compute = "return_one"
    output "result" {
      type = any
    }
  }

  solid "do_input" {
    compute = "identity"
    input "x" {
      type = any
      from = solid.do_something.result
    }
  }
}
`

// FanPipelineHCL exercises run-config driven fan-out, a pass-through solid
// and resource configuration.
const FanPipelineHCL = `
pipeline "fan" {
  mode "default" {
    resource "store" {
      config "bucket" {
        type = string
      }
      config "region" {
        type    = string
        default = "eu-west-1"
      }
    }
  }
  mode "local" {}

  solid "source" {
    compute = "load"
    output "rows" {
      type = list(string)
    }
    config "limit" {
      type    = number
      default = 10
    }
  }

  solid "group" {
    input "rows" {
      type = list(string)
      from = solid.source.rows
    }
    output "rows" {
      type = list(string)
    }
  }

  solid "work" {
    compute = "process"
    count   = config.work
    input "rows" {
      type = list(string)
      from = solid.group.rows
    }
    input "label" {
      type = string
    }
  }

  solid "report" {
    compute    = "summarize"
    depends_on = ["work"]
  }
}
`

// WriteFooPipeline writes FooPipelineHCL to a temporary directory and returns
// the path of the file.
func WriteFooPipeline(t *testing.T) string {
	t.Helper()
	dir := WriteFiles(t, map[string]string{"foo.hcl": FooPipelineHCL})
	return filepath.Join(dir, "foo.hcl")
}

// WriteFanPipeline writes FanPipelineHCL to a temporary directory and returns
// the path of the file.
func WriteFanPipeline(t *testing.T) string {
	t.Helper()
	dir := WriteFiles(t, map[string]string{"fan.hcl": FanPipelineHCL})
	return filepath.Join(dir, "fan.hcl")
}
