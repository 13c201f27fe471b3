package web

const layoutStyles = `<style>
:root {
  color-scheme: light;
  --bg: #f6f1e8;
  --bg-accent: #e2eef0;
  --ink: #1f262d;
  --muted: #5c6c73;
  --card: rgba(255, 255, 255, 0.78);
  --stroke: rgba(31, 38, 45, 0.12);
  --accent: #2f6f6d;
  --accent-dark: #1e4f52;
  --secure: #2e7d4f;
  --caution: #b7862b;
  --risk: #b23b3b;
  --shadow: 0 16px 40px rgba(15, 23, 28, 0.12);
}

* {
  box-sizing: border-box;
}

body {
  margin: 0;
  min-height: 100vh;
  font-family: "Iowan Old Style", "Palatino Linotype", "Book Antiqua", serif;
  color: var(--ink);
  background: radial-gradient(circle at 20% 20%, var(--bg-accent), transparent 45%),
    linear-gradient(135deg, #fbf7ef, var(--bg));
}

.shell {
  max-width: 1040px;
  margin: 0 auto;
  padding: 48px 24px 72px;
  display: grid;
  gap: 24px;
}

.page-header h1 {
  margin: 8px 0;
  font-size: clamp(2rem, 3vw, 2.6rem);
  letter-spacing: -0.02em;
}

.eyebrow {
  text-transform: uppercase;
  letter-spacing: 0.24em;
  font-size: 0.72rem;
  color: var(--muted);
  margin: 0;
}

.subhead {
  margin: 0;
  color: var(--muted);
}

.card {
  background: var(--card);
  border: 1px solid var(--stroke);
  border-radius: 16px;
  padding: 20px 22px;
  box-shadow: var(--shadow);
}

.shield {
  display: flex;
  justify-content: space-between;
  align-items: center;
  gap: 16px;
  flex-wrap: wrap;
  border-left: 8px solid var(--caution);
}

.shield--secure {
  border-left-color: var(--secure);
}

.shield--at_risk {
  border-left-color: var(--risk);
}

.shield-level {
  margin: 6px 0;
  font-size: 1.8rem;
}

.notice {
  border-radius: 12px;
  padding: 12px 16px;
  color: white;
  background: var(--accent);
}

.notice--success {
  background: var(--secure);
}

.notice--error {
  background: var(--risk);
}

.warning {
  margin: 8px 0 0;
  color: var(--risk);
  font-size: 0.9rem;
}

input {
  min-width: 120px;
  border-radius: 10px;
  border: 1px solid var(--stroke);
  padding: 8px 10px;
  font-size: 0.95rem;
  font-family: inherit;
}

button {
  border: none;
  border-radius: 999px;
  padding: 8px 16px;
  background: var(--accent);
  color: white;
  font-size: 0.95rem;
  cursor: pointer;
  font-family: inherit;
}

button:hover {
  background: var(--accent-dark);
}

button:disabled {
  opacity: 0.6;
  cursor: default;
}

.ghost {
  background: transparent;
  border: 1px solid var(--stroke);
  color: var(--ink);
}

.ghost:hover {
  background: rgba(47, 111, 109, 0.12);
}

.stats-grid {
  display: grid;
  gap: 16px;
  grid-template-columns: repeat(auto-fit, minmax(140px, 1fr));
  margin-top: 12px;
}

.stat-label {
  margin: 0;
  font-size: 0.85rem;
  color: var(--muted);
  text-transform: uppercase;
  letter-spacing: 0.1em;
}

.stat-value {
  margin: 6px 0 0;
  font-size: 1.5rem;
}

.page-actions {
  display: flex;
  align-items: center;
  gap: 16px;
  flex-wrap: wrap;
}

.back-link {
  color: var(--accent);
  text-decoration: none;
  font-weight: 600;
}

.back-link:hover {
  text-decoration: underline;
}

.empty,
.muted {
  margin: 0;
  color: var(--muted);
}

.table-wrap {
  width: 100%;
  overflow-x: auto;
}

.device-table {
  width: 100%;
  border-collapse: collapse;
  min-width: 720px;
}

.device-table th,
.device-table td {
  text-align: left;
  padding: 10px 8px;
  border-bottom: 1px solid var(--stroke);
}

.device-table th {
  font-size: 0.8rem;
  letter-spacing: 0.08em;
  text-transform: uppercase;
  color: var(--muted);
}

.device-table tr.stale td {
  opacity: 0.6;
}

.status-dot {
  display: inline-block;
  width: 8px;
  height: 8px;
  margin-right: 8px;
  border-radius: 50%;
  background: var(--muted);
}

.status-dot--online {
  background: var(--secure);
}

.status-dot--offline {
  background: var(--risk);
}

.mono {
  font-family: "SFMono-Regular", "Fira Mono", "Source Code Pro", monospace;
}

.inline-form {
  display: flex;
  gap: 8px;
  flex-wrap: wrap;
}

.device-form {
  display: grid;
  gap: 12px;
  grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
}

.device-form label {
  display: grid;
  gap: 6px;
  font-size: 0.85rem;
  color: var(--muted);
  text-transform: uppercase;
  letter-spacing: 0.08em;
}

.form-actions {
  display: flex;
  align-items: end;
}

@media (max-width: 600px) {
  .shell {
    padding: 32px 18px 48px;
  }

  button {
    width: 100%;
  }
}
</style>`
