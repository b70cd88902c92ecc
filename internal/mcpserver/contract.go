package mcpserver

// BadgeFormatContract describes the badge cell written to every notebook.
const BadgeFormatContract = `# Badge Cell Format

The first cell of every processed notebook is a markdown cell holding exactly:

` + "```" + `html
<a target="_blank" href="{repo_base_url}/{relative_path}">
  <img src="https://colab.research.google.com/assets/colab-badge.svg" alt="Open In Colab"/>
</a>
` + "```" + `

## Rules

1. **relative_path** is the notebook path relative to the scanned root, with
   forward slashes. It is not URL-encoded.
2. **Replacement.** When the current first cell contains the text
   "Open In Colab" it is removed before the new badge is inserted, so running
   the tool again never stacks badges.
3. **Everything else is preserved.** Other cells, their order, and all
   notebook and cell metadata are written back unchanged.
4. **Cell ids.** On nbformat 4.5+ the badge cell id is the first 8 hex
   characters of the SHA-256 of relative_path.
`
