package codegen

const workflowTemplate = `{{if .Comments -}}
// Workflow: {{comment .Name}}
{{- if .Description}}
// {{comment .Description}}
{{- end}}
// Generated from a workflow graph. Edit the graph, not this file.

{{end -}}
import { {{join .Imports ", "}} } from '@temporalio/workflow';
import type * as activities from './activities';
{{- range .Proxies}}

const {{.Name}} = proxyActivities<typeof activities>({
  startToCloseTimeout: {{.Timeout}},
{{- if .Retry}}
  retry: {{.Retry}},
{{- end}}
});
{{- end}}
{{- if or .Signals .UsesPhase}}
{{range .Signals}}
export const {{.Const}} = defineSignal<[unknown]>({{quote .Name}});
{{- end}}
{{- if .UsesPhase}}
export const currentPhaseQuery = defineQuery<string>('currentPhase');
{{- end}}
{{- end}}

export interface {{.TypeName}}State {
{{- range .StateFields}}
  {{.Key}}{{if .Optional}}?{{end}}: {{.Type}};
{{- end}}
  [key: string]: {{.IndexType}};
}

export type {{.TypeName}}Input = Partial<{{.TypeName}}State>;

export interface {{.TypeName}}Result {
  success: boolean;
  state: {{.TypeName}}State;
  results: Record<string, {{.IndexType}}>;
}

const defaults: Partial<{{.TypeName}}State> = {{.Defaults}};

export async function {{.FuncName}}(input: {{.TypeName}}Input = {}): Promise<{{.TypeName}}Result> {
  const state = { ...defaults, ...input } as {{.TypeName}}State;
  const results: Record<string, {{.IndexType}}> = {};
{{- if .UsesActive}}
  const active = new Set<string>();
{{- end}}
{{- if .Signals}}
  const signals = new Map<string, unknown>();
{{- range .Signals}}
  setHandler({{.Const}}, (payload: unknown) => {
    signals.set({{quote .Name}}, payload);
  });
{{- end}}
{{- end}}
{{- if .UsesPhase}}
  let currentPhase = '';
  setHandler(currentPhaseQuery, () => currentPhase);
{{- end}}
{{.Body}}
{{- if not .Terminated}}
  return { success: true, state, results };
{{- end}}
}
`

const activitiesTemplate = `{{if .Comments -}}
// Activity stubs for workflow: {{comment .Name}}
// Replace each body with the real implementation.

{{end -}}
{{if .Activities -}}
import { log } from '@temporalio/activity';
{{range .Activities}}
{{- if $.Comments}}
// Referenced in the graph as {{quote .Source}}.
{{- end}}
export async function {{.Name}}(input: Record<string, {{$.IndexType}}>): Promise<Record<string, {{$.IndexType}}>> {
  log.info({{quote .Name}}, { input });
  return { ...input };
}
{{end}}
{{- else -}}
export {};
{{end -}}
`

const workerTemplate = `{{if .Comments -}}
// Worker bootstrap for workflow: {{comment .Name}}

{{end -}}
import { NativeConnection, Worker } from '@temporalio/worker';
import * as activities from './activities';

async function run(): Promise<void> {
  const connection = await NativeConnection.connect({
    address: process.env.TEMPORAL_ADDRESS ?? 'localhost:7233',
  });
  try {
    const worker = await Worker.create({
      connection,
      namespace: process.env.TEMPORAL_NAMESPACE ?? 'default',
      taskQueue: {{quote .TaskQueue}},
      workflowsPath: require.resolve('./workflow'),
      activities,
    });
    await worker.run();
  } finally {
    await connection.close();
  }
}

run().catch((err) => {
  console.error(err);
  process.exit(1);
});
`
