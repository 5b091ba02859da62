package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/planner/internal/config"
	"github.com/vk/planner/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional expression fields with
// non-nil, zero-width placeholder expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		return false
	}

	// A real attribute occupies bytes in the file, while a placeholder for an
	// omitted optional attribute has a zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)

	return isDefined
}

// parseOutputRef decodes a `from` expression of the form
// `solid.<solid_name>.<output_name>`.
func parseOutputRef(expr hcl.Expression) (*config.OutputRef, error) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("from must be a reference like solid.<name>.<output>: %w", diags)
	}
	if len(traversal) != 3 || traversal.RootName() != "solid" {
		return nil, fmt.Errorf("from must be a reference like solid.<name>.<output>, got %d segments rooted at %q", len(traversal), traversal.RootName())
	}

	solidAttr, solidOk := traversal[1].(hcl.TraverseAttr)
	outputAttr, outputOk := traversal[2].(hcl.TraverseAttr)
	if !solidOk || !outputOk {
		return nil, fmt.Errorf("from must use attribute access, e.g. solid.<name>.<output>")
	}

	return &config.OutputRef{Solid: solidAttr.Name, Output: outputAttr.Name}, nil
}

// translateDefault evaluates a `default` expression and converts it to the
// declared type. It returns nil when no default was written.
func translateDefault(ctx context.Context, expr hcl.Expression, ty cty.Type, owner string) (*cty.Value, error) {
	if !isExprDefined(ctx, expr, "default") {
		return nil, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid default value for %s: %w", owner, diags)
	}
	if val.IsNull() {
		return nil, nil
	}

	converted, err := convert.Convert(val, ty)
	if err != nil {
		return nil, fmt.Errorf("default value for %s does not match type %s: %w", owner, ty.FriendlyName(), err)
	}
	return &converted, nil
}

// translateType resolves an optional `type` expression, defaulting to any.
func translateType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	if !isExprDefined(ctx, expr, "type") {
		return cty.DynamicPseudoType, nil
	}
	return typeExprToCtyType(ctx, expr)
}
