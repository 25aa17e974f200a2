package workbench

// SampleCode is the demo snippet loaded by the sample command. It carries a
// few deliberate problems for the reviewers to find.
const SampleCode = `import json

def load_user(path):
    f = open(path)
    data = json.load(f)
    return data["user"]

def average(scores):
    total = 0
    for s in scores:
        total = total + s
    return total / len(scores)

def find_user(users, name):
    for i in range(0, len(users)):
        if users[i]["name"] == name:
            return users[i]
    return None

print(average([]))
`
