package server

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gobuffalo/plush"
)

// pageView holds what the page shows besides the active rule.
type pageView struct {
	Message  string
	Failed   bool
	RuleText string
	JSONData string
	Result   string
	Report   string
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>gavel</title>
<style>
  body { background-color: #e0f7fa; font-family: Arial, sans-serif; }
  h1 { color: #00796b; text-align: center; }
  section { margin: 20px auto; width: 80%; max-width: 700px; padding: 20px; background-color: #ffffff; border-radius: 10px; }
  h2 { color: #004d40; margin-top: 0; }
  label { display: block; margin-bottom: 10px; font-weight: bold; color: #004d40; }
  textarea { width: 100%; padding: 12px; margin: 10px 0; box-sizing: border-box; font-family: monospace; }
  button { width: 100%; padding: 12px; background-color: #00796b; color: white; border: none; cursor: pointer; }
  button:hover { background-color: #004d40; }
  pre { background-color: #f5f5f5; padding: 12px; overflow-x: auto; }
  .ok { color: #00796b; }
  .failed { color: #b71c1c; }
</style>
</head>
<body>
<h1>gavel</h1>
<%= if (message != "") { %>
<section><p class="<%= if (failed) { %>failed<% } else { %>ok<% } %>"><%= message %></p></section>
<% } %>
<section>
  <h2>Active rule</h2>
  <%= if (hasRule) { %>
  <pre><%= canonical %></pre>
  <p>id <code><%= ruleID %></code>, compiled <%= age %></p>
  <% } else { %>
  <p>No rule created yet.</p>
  <% } %>
</section>
<section>
  <form action="/create_rule" method="post">
    <label for="rule_string">Rule</label>
    <textarea id="rule_string" name="rule_string" rows="3" placeholder="(age > 30 and department == 'Sales') or (age < 25 and department == 'Marketing')" required><%= ruleText %></textarea>
    <button type="submit">Create Rule</button>
  </form>
</section>
<section>
  <form action="/evaluate_rule" method="post">
    <label for="json_data">Data (JSON object)</label>
    <textarea id="json_data" name="json_data" rows="5" placeholder='{"age": 35, "department": "Sales", "salary": 60000, "experience": 6}' required><%= jsonData %></textarea>
    <button type="submit">Evaluate Rule</button>
  </form>
  <%= if (result != "") { %>
  <p>Result: <strong><%= result %></strong></p>
  <% } %>
  <%= if (report != "") { %>
  <pre><%= report %></pre>
  <% } %>
</section>
</body>
</html>
`

func (s *Server) renderPage(w http.ResponseWriter, status int, view pageView) {
	ctx := plush.NewContext()
	ctx.Set("message", view.Message)
	ctx.Set("failed", view.Failed)
	ctx.Set("ruleText", view.RuleText)
	ctx.Set("jsonData", view.JSONData)
	ctx.Set("result", view.Result)
	ctx.Set("report", view.Report)

	rule, ok := s.vault.Get()
	ctx.Set("hasRule", ok)
	ctx.Set("canonical", "")
	ctx.Set("ruleID", "")
	ctx.Set("age", "")
	if ok {
		ctx.Set("canonical", rule.Canonical())
		ctx.Set("ruleID", rule.ID)
		ctx.Set("age", humanize.RelTime(rule.Compiled, s.now(), "ago", "from now"))
	}

	html, err := s.page.Exec(ctx)
	if err != nil {
		s.log.WithError(err).Error("rendering page")
		http.Error(w, "rendering page failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(html))
}
