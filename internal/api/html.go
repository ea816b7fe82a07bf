package api

const pageStyle = `
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .header a { color: #94a3b8; text-decoration: none; font-size: 0.875rem; }
        .header a:hover { color: #38bdf8; }
        .status { padding: 0.5rem 1rem; border-radius: 9999px; font-size: 0.875rem; font-weight: 600; }
        .status.running { background: #166534; color: #4ade80; }
        .status.error, .status.cancelled { background: #991b1b; color: #fca5a5; }
        .status.completed { background: #1e3a8a; color: #93c5fd; }
        .status.idle { background: #854d0e; color: #fde047; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.5rem; margin: 1.5rem 2rem; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.75rem; }
        form { display: grid; grid-template-columns: 3fr 1fr 1fr 1fr auto auto; gap: 0.75rem; align-items: center; }
        input[type=text], input[type=number] { background: #0f172a; border: 1px solid #475569; border-radius: 8px; padding: 0.6rem 0.8rem; color: #f1f5f9; }
        button { background: #38bdf8; color: #0f172a; border: 0; border-radius: 8px; padding: 0.6rem 1.2rem; font-weight: 600; cursor: pointer; }
        button.secondary { background: #334155; color: #e2e8f0; }
        pre { background: #0f172a; border-radius: 8px; padding: 1rem; max-height: 320px; overflow: auto; font-size: 0.8rem; color: #cbd5e1; white-space: pre-wrap; }
        table { width: 100%; border-collapse: collapse; font-size: 0.875rem; }
        th { text-align: left; color: #94a3b8; font-weight: 600; padding: 0.5rem; border-bottom: 1px solid #475569; }
        td { padding: 0.5rem; border-bottom: 1px solid #334155; vertical-align: top; }
        td a { color: #38bdf8; }
        .exports a { color: #38bdf8; margin-right: 1rem; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
`

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>MapGoat</title>
    <style>` + pageStyle + `</style>
</head>
<body>
    <div class="header">
        <h1>MapGoat</h1>
        <div><a href="/history">History</a> &nbsp; <span class="status idle" id="status">Idle</span></div>
    </div>
    <div class="card">
        <div class="label">New search</div>
        <form id="search">
            <input type="text" name="query" placeholder="pizza New York" required>
            <input type="number" name="many" min="1" value="{{.Many}}">
            <input type="text" name="lang" value="{{.Lang}}">
            <input type="text" name="region" value="{{.Region}}">
            <label><input type="checkbox" name="deep_search" {{if .DeepSearch}}checked{{end}}> Deep search</label>
            <button type="submit">Start</button>
        </form>
    </div>
    <div class="card">
        <div class="label">Log <button class="secondary" id="cancel" type="button" hidden>Cancel</button></div>
        <pre id="logs"></pre>
        <div class="exports" id="exports" hidden>
            <a id="export-xlsx">Excel</a><a id="export-csv">CSV</a><a id="export-json">JSON</a>
        </div>
    </div>
    <div class="card">
        <div class="label">Results</div>
        <table>
            <thead><tr><th>#</th><th>Name</th><th>Address</th><th>Phone</th><th>Rating</th><th>Website</th></tr></thead>
            <tbody id="results"></tbody>
        </table>
    </div>
    <div class="footer">Polling every 2s</div>
    <script>
        let taskId = null;
        let timer = null;

        function cell(row, text, href) {
            const td = document.createElement('td');
            if (href && href !== 'N/A') {
                const a = document.createElement('a');
                a.href = href; a.target = '_blank'; a.textContent = text;
                td.appendChild(a);
            } else {
                td.textContent = text;
            }
            row.appendChild(td);
        }

        function render(t) {
            const status = document.getElementById('status');
            status.textContent = t.status;
            status.className = 'status ' + t.status;
            document.getElementById('logs').textContent = (t.logs || []).join('\n');
            document.getElementById('cancel').hidden = t.status !== 'running';

            const body = document.getElementById('results');
            body.innerHTML = '';
            (t.results || []).forEach(r => {
                const row = document.createElement('tr');
                cell(row, r.id);
                cell(row, r.name, r.url);
                cell(row, r.address);
                cell(row, r.phone);
                cell(row, r.rating);
                cell(row, r.website, r.website);
                body.appendChild(row);
            });

            if (t.status !== 'running') {
                clearInterval(timer);
                if ((t.results || []).length > 0) {
                    ['xlsx', 'csv', 'json'].forEach(f => {
                        document.getElementById('export-' + f).href = '/export/' + t.id + '?format=' + f;
                    });
                    document.getElementById('exports').hidden = false;
                }
            }
        }

        async function poll() {
            const res = await fetch('/status/' + taskId);
            if (res.ok) render(await res.json());
        }

        document.getElementById('search').addEventListener('submit', async e => {
            e.preventDefault();
            const f = e.target;
            document.getElementById('exports').hidden = true;
            const res = await fetch('/parse', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({
                    query: f.query.value,
                    many: f.many.value,
                    lang: f.lang.value,
                    region: f.region.value,
                    deep_search: f.deep_search.checked
                })
            });
            const data = await res.json();
            if (!res.ok) {
                document.getElementById('logs').textContent = data.error;
                return;
            }
            taskId = data.task_id;
            clearInterval(timer);
            timer = setInterval(poll, 2000);
            poll();
        });

        document.getElementById('cancel').addEventListener('click', () => {
            if (taskId) fetch('/cancel/' + taskId, {method: 'POST'});
        });
    </script>
</body>
</html>`

const historyHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>MapGoat History</title>
    <style>` + pageStyle + `</style>
</head>
<body>
    <div class="header">
        <h1>History</h1>
        <a href="/">New search</a>
    </div>
    <div class="card">
        <div class="label">{{len .Results}} saved places</div>
        <table>
            <thead><tr><th>ID</th><th>Task</th><th>Name</th><th>Address</th><th>Phone</th><th>Rating</th><th>Website</th><th>Saved</th></tr></thead>
            <tbody>
            {{range .Results}}
                <tr>
                    <td>{{.ID}}</td>
                    <td><a href="/export/{{.TaskID}}">{{.TaskID}}</a></td>
                    <td><a href="{{.URL}}" target="_blank">{{.Name}}</a></td>
                    <td>{{.Address}}</td>
                    <td>{{.Phone}}</td>
                    <td>{{.Rating}}</td>
                    <td>{{.Website}}</td>
                    <td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td>
                </tr>
            {{else}}
                <tr><td colspan="8">No results yet</td></tr>
            {{end}}
            </tbody>
        </table>
    </div>
</body>
</html>`
