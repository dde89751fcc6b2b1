// Copyright 2025 Ash Labs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@ashlabs.dev
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package compiler

import (
	"fmt"

	"github.com/ashlabs/ashc/internal/ast"
	"github.com/ashlabs/ashc/internal/ctx"
	"github.com/ashlabs/ashc/internal/registry"
)

// convertDefaultExpr lowers a parameter's default-value expression into the
// closed grammar registry.DefaultExpr supports (spec.md §3.4): literals,
// negation, qualified enum references, single-level constructor calls, and
// unary/binary arithmetic over that grammar. Anything richer is rejected so
// the registration pass never has to carry a live AST node past this point.
func convertDefaultExpr(c *ctx.Context, e ast.Expr) (*registry.DefaultExpr, error) {
	switch v := e.(type) {
	case *ast.IntLit:
		return &registry.DefaultExpr{Kind: registry.DefaultLiteralInt, IntValue: v.Value}, nil
	case *ast.FloatLit:
		return &registry.DefaultExpr{Kind: registry.DefaultLiteralFloat, FloatValue: v.Value}, nil
	case *ast.BoolLit:
		return &registry.DefaultExpr{Kind: registry.DefaultLiteralBool, BoolValue: v.Value}, nil
	case *ast.StringLit:
		return &registry.DefaultExpr{Kind: registry.DefaultLiteralString, StringValue: v.Value}, nil
	case *ast.NullLit:
		return &registry.DefaultExpr{Kind: registry.DefaultLiteralNull}, nil

	case *ast.QualifiedExpr:
		if len(v.Path) < 2 {
			return nil, fmt.Errorf("default expression: bare qualified reference is not an enum value")
		}
		enumName := v.Path[len(v.Path)-2]
		valueName := v.Path[len(v.Path)-1]
		enumHash, ok := c.ResolveType(enumName)
		if !ok {
			return nil, fmt.Errorf("default expression: unknown enum type %q", enumName)
		}
		return &registry.DefaultExpr{Kind: registry.DefaultEnumRef, EnumType: enumHash, EnumName: valueName}, nil

	case *ast.UnaryExpr:
		if v.Op != "-" {
			return nil, fmt.Errorf("default expression: unsupported unary operator %q", v.Op)
		}
		inner, err := convertDefaultExpr(c, v.Operand)
		if err != nil {
			return nil, err
		}
		return &registry.DefaultExpr{Kind: registry.DefaultNegate, Operand: inner}, nil

	case *ast.BinaryExpr:
		left, err := convertDefaultExpr(c, v.Left)
		if err != nil {
			return nil, err
		}
		right, err := convertDefaultExpr(c, v.Right)
		if err != nil {
			return nil, err
		}
		return &registry.DefaultExpr{Kind: registry.DefaultBinary, Op: v.Op, Left: left, Right: right}, nil

	case *ast.CallExpr:
		name, err := calleeName(v.Callee)
		if err != nil {
			return nil, err
		}
		ctorType, ok := c.ResolveType(name)
		if !ok {
			return nil, fmt.Errorf("default expression: unknown constructor type %q", name)
		}
		args := make([]registry.DefaultExpr, 0, len(v.Args))
		for _, a := range v.Args {
			conv, err := convertDefaultExpr(c, a)
			if err != nil {
				return nil, err
			}
			args = append(args, *conv)
		}
		return &registry.DefaultExpr{Kind: registry.DefaultConstructorCall, CtorType: ctorType, CtorArgs: args}, nil

	default:
		return nil, fmt.Errorf("default expression: %T is outside the supported grammar", e)
	}
}

func calleeName(e ast.Expr) (string, error) {
	switch v := e.(type) {
	case *ast.IdentExpr:
		return v.Name, nil
	case *ast.QualifiedExpr:
		out := ""
		for i, p := range v.Path {
			if i > 0 {
				out += "::"
			}
			out += p
		}
		return out, nil
	default:
		return "", fmt.Errorf("default expression: unsupported constructor callee %T", e)
	}
}
