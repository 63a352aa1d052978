package email

import (
	"fmt"
)

func generateExportHTML(snapshot Snapshot) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Catalog export</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f8f9fa;
        }
        .container {
            background-color: white;
            padding: 40px;
            border-radius: 12px;
            box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
        }
        .logo {
            font-size: 28px;
            font-weight: bold;
            color: #2d4a7a;
            text-align: center;
            margin-bottom: 20px;
        }
        .stats {
            background-color: #f8f9fa;
            padding: 20px;
            border-radius: 8px;
            margin: 20px 0;
        }
        .label {
            font-weight: 600;
            color: #495057;
        }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #e9ecef;
            font-size: 14px;
            color: #6c757d;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">Item Catalog</div>

        <p>Attached is the catalog export generated on %s.</p>

        <div class="stats">
            <div><span class="label">Format:</span> %s</div>
            <div><span class="label">Categories:</span> %d</div>
            <div><span class="label">Items:</span> %d</div>
            <div><span class="label">File:</span> %s</div>
        </div>

        <div class="footer">
            <p>This message was sent by the catalog export command.</p>
        </div>
    </div>
</body>
</html>`,
		snapshot.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"),
		snapshot.Format,
		snapshot.Stats.TotalCategories,
		snapshot.Stats.TotalItems,
		snapshot.Filename(),
	)
}

func generateExportText(snapshot Snapshot) string {
	return fmt.Sprintf(`Attached is the catalog export generated on %s.

Format: %s
Categories: %d
Items: %d
File: %s

---
This message was sent by the catalog export command.`,
		snapshot.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"),
		snapshot.Format,
		snapshot.Stats.TotalCategories,
		snapshot.Stats.TotalItems,
		snapshot.Filename(),
	)
}
