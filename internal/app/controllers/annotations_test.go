package controllers

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 每个对外的处理方法都要带完整的 swagger 注解
func TestHandlersCarrySwaggerAnnotations(t *testing.T) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, ".", func(fi fs.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, parser.ParseComments)
	require.NoError(t, err)

	handlers := 0
	for _, pkg := range pkgs {
		for _, file := range pkg.Files {
			for _, decl := range file.Decls {
				fn, ok := decl.(*ast.FuncDecl)
				if !ok || fn.Recv == nil || !fn.Name.IsExported() {
					continue
				}
				star, ok := fn.Recv.List[0].Type.(*ast.StarExpr)
				if !ok {
					continue
				}
				recv, ok := star.X.(*ast.Ident)
				if !ok || !strings.HasSuffix(recv.Name, "Controller") {
					continue
				}

				handlers++
				doc := fn.Doc.Text()
				for _, tag := range []string{"@Summary", "@Tags", "@Produce", "@Success", "@Router"} {
					assert.Contains(t, doc, tag, "%s.%s", recv.Name, fn.Name.Name)
				}
				if !strings.Contains(doc, "/v1/dues/") && !strings.HasPrefix(fn.Name.Name, "Login") && recv.Name != "HealthController" {
					assert.Contains(t, doc, "@Security", "%s.%s", recv.Name, fn.Name.Name)
				}
			}
		}
	}
	assert.GreaterOrEqual(t, handlers, 15)
}
